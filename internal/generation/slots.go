package generation

import (
	"sort"

	"github.com/odvcencio/roomhub/internal/models"
)

// GetSlots implements the fixed, deterministic permutation spec.md §4.4
// and §9 name: a stable sort by (bundle_id, owner_id, yaml.id). Both the
// correlation resolver here and the external generator worker must use
// this exact tie-break rule — spec.md §9's "same implementation in both
// paths" is satisfied by documenting it as the contract, since the
// worker binary itself is out of scope (SPEC_FULL.md §6).
//
// The returned slice's index+1 is the 1-based slot number.
func GetSlots(yamls []*models.YAML) []*models.YAML {
	out := make([]*models.YAML, len(yamls))
	copy(out, yamls)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BundleID != b.BundleID {
			return a.BundleID < b.BundleID
		}
		if a.OwnerID != b.OwnerID {
			return a.OwnerID < b.OwnerID
		}
		return a.ID < b.ID
	})
	return out
}

// SlotNumber returns the 1-based slot number of yamlID within ordered
// (the output of GetSlots), or 0 if not present.
func SlotNumber(ordered []*models.YAML, yamlID int64) int {
	for i, y := range ordered {
		if y.ID == yamlID {
			return i + 1
		}
	}
	return 0
}
