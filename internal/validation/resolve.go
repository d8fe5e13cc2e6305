package validation

import (
	"sort"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
)

// ResolveGames resolves every game name referenced by docs against the
// room's currently resolved manifest (spec.md §4.3 "Game extraction").
// A name with no entry in resolved is "unsupported"; unsupported names
// are rejected unless room.AllowUnsupported is set, in which case they
// are simply omitted from the returned apworld list.
func ResolveGames(room *models.Room, docs []ParsedDocument, resolved models.ResolvedSet) ([]models.NameVersion, error) {
	required := make(map[string]bool)
	var unsupported []string

	for _, doc := range docs {
		for _, game := range doc.Games {
			if _, ok := resolved[game.Name]; !ok {
				unsupported = append(unsupported, game.Name)
				continue
			}
			required[game.Name] = true
		}
	}

	if len(unsupported) > 0 && !room.AllowUnsupported {
		return nil, apperror.InvalidInput("unsupported game(s): %v", unsupported)
	}

	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]models.NameVersion, 0, len(names))
	for _, name := range names {
		out = append(out, models.NameVersion{Name: name, Version: resolved[name].Version})
	}
	return out, nil
}
