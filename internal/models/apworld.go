package models

import (
	"github.com/Masterminds/semver/v3"
)

// OriginKind is one of the four ways an apworld version's bytes can be
// located, per spec §3.
type OriginKind string

const (
	OriginDefaultURLTemplate OriginKind = "default-url-template"
	OriginExplicitURL        OriginKind = "explicit-url"
	OriginSupportedByHost    OriginKind = "supported-by-host"
	OriginLocalPath          OriginKind = "local-path"
)

// Origin describes where a specific apworld version's archive lives.
type Origin struct {
	Kind OriginKind `json:"kind" yaml:"kind"`
	// URL holds the URL for OriginExplicitURL. It is empty for
	// OriginDefaultURLTemplate, whose URL is rendered from the Apworld's
	// DefaultURLTemplate at fetch time.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Path holds the filesystem path for OriginLocalPath.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// VersionEntry pairs a concrete semver version with where it came from.
type VersionEntry struct {
	Version *semver.Version `json:"-" yaml:"-"`
	Raw     string          `json:"version" yaml:"version"`
	Origin  Origin          `json:"origin" yaml:"origin"`
}

// Apworld is a catalog entry: a named, versioned plugin module.
type Apworld struct {
	Name               string         `json:"name" yaml:"name"`
	DisplayName        string         `json:"display_name" yaml:"display_name"`
	DefaultURLTemplate string         `json:"default_url" yaml:"default_url"`
	Versions           []VersionEntry `json:"versions" yaml:"versions"`
}

// VersionEntryFor returns the VersionEntry matching raw (exact string
// match against the catalog's recorded version strings), or false.
func (a *Apworld) VersionEntryFor(raw string) (VersionEntry, bool) {
	for _, v := range a.Versions {
		if v.Raw == raw {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// Latest returns the semver-greatest version in the catalog, or false if
// the apworld has no versions.
func (a *Apworld) Latest() (VersionEntry, bool) {
	return a.bestBy(func(VersionEntry) bool { return true })
}

// LatestSupported returns the semver-greatest version whose Origin is
// OriginSupportedByHost, or false if none qualifies.
func (a *Apworld) LatestSupported() (VersionEntry, bool) {
	return a.bestBy(func(v VersionEntry) bool { return v.Origin.Kind == OriginSupportedByHost })
}

func (a *Apworld) bestBy(pred func(VersionEntry) bool) (VersionEntry, bool) {
	var best VersionEntry
	found := false
	for _, v := range a.Versions {
		if v.Version == nil || !pred(v) {
			continue
		}
		if !found || v.Version.GreaterThan(best.Version) {
			best = v
			found = true
		}
	}
	return best, found
}
