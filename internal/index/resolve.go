package index

import (
	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
)

// DefaultManifest builds a Manifest mapping every apworld in catalog to
// Latest (spec.md §4.2 "default_from").
func DefaultManifest(catalog *Catalog) models.Manifest {
	m := make(models.Manifest, len(catalog.apworlds))
	for name := range catalog.apworlds {
		m[name] = models.Latest()
	}
	return m
}

// ResolveWith resolves every selector in m against catalog, returning the
// resolved set and a per-name error map for selectors that could not be
// resolved (spec.md §4.2 "resolve_with"). A Disabled selector is simply
// omitted from the resolved set and never produces an error.
func ResolveWith(m models.Manifest, catalog *Catalog) (models.ResolvedSet, map[string]error) {
	resolved := make(models.ResolvedSet, len(m))
	errs := make(map[string]error)

	for name, selector := range m {
		if selector.Kind == models.SelectorDisabled {
			continue
		}
		apworld, ok := catalog.Get(name)
		if !ok {
			errs[name] = apperror.NotFound("apworld %q not in catalog", name)
			continue
		}

		var entry models.VersionEntry
		var found bool
		switch selector.Kind {
		case models.SelectorLatest:
			entry, found = apworld.Latest()
		case models.SelectorLatestSupported:
			entry, found = apworld.LatestSupported()
		case models.SelectorSpecific:
			entry, found = apworld.VersionEntryFor(selector.Version)
		default:
			errs[name] = apperror.InvalidInput("apworld %q: unknown selector kind %q", name, selector.Kind)
			continue
		}
		if !found {
			errs[name] = apperror.NotFound("apworld %q: no version satisfies selector %q", name, selector.Kind)
			continue
		}
		resolved[name] = models.ResolvedApworld{Apworld: apworld, Version: entry.Raw}
	}
	return resolved, errs
}

// UpdatedWith returns m unchanged, ready to be re-resolved against
// newCatalog by a subsequent ResolveWith call (spec.md §4.2
// "updated_with"). Selectors carry no cached version themselves — Latest
// and LatestSupported always re-resolve dynamically — so the only
// substantive content of this operation is the invariant it names:
// Specific and Disabled selectors must compare identical before and
// after, which Clone preserves by construction.
func UpdatedWith(m models.Manifest, newCatalog *Catalog) models.Manifest {
	return m.Clone()
}

// Freeze transforms every non-Disabled selector in m into Specific(resolved
// version) against catalog (spec.md §4.2 "freeze"). Selectors that fail to
// resolve are left as-is and reported in the returned error map; a frozen
// manifest's subsequent ResolveWith calls are then deterministic
// irrespective of later catalog changes, since every surviving selector is
// now a concrete Specific version.
func Freeze(m models.Manifest, catalog *Catalog) (models.Manifest, map[string]error) {
	resolved, errs := ResolveWith(m, catalog)
	frozen := m.Clone()
	for name, ra := range resolved {
		frozen[name] = models.Specific(ra.Version)
	}
	return frozen, errs
}

// ShouldRevalidate implements spec.md §4.2's revalidation policy and the
// §8 testable property that restates it as full set equality: a YAML must
// be resubmitted for validation if it was never successfully validated,
// or if the resolved (name, version) set differs at all from its stored
// set — in either direction, compared as a set, not an ordered list.
func ShouldRevalidate(storedApworlds map[string]string, resolved models.ResolvedSet) bool {
	if len(storedApworlds) == 0 {
		return true
	}
	if len(storedApworlds) != len(resolved) {
		return true
	}
	for name, storedVersion := range storedApworlds {
		ra, ok := resolved[name]
		if !ok || ra.Version != storedVersion {
			return true
		}
	}
	return false
}
