package generation

import (
	"context"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/index"
	"github.com/odvcencio/roomhub/internal/models"
)

// RoomStore is the persistence seam Enqueue needs: read every YAML in a
// room, read/write the room's manifest, and read/insert its generation
// record — all within one transaction (spec.md §4.4 "Enqueue").
type RoomStore interface {
	ListRoomYAMLs(ctx context.Context, roomID int64) ([]*models.YAML, error)
	GetGeneration(ctx context.Context, roomID int64) (*models.GenerationRecord, error)
	GetGenerationByJobID(ctx context.Context, jobID string) (*models.GenerationRecord, error)
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	UpdateRoomManifest(ctx context.Context, roomID int64, manifest models.Manifest) error
	InsertGeneration(ctx context.Context, roomID int64, jobID string) error
	// DeleteGeneration removes a room's generation record and clears
	// patch_file for all its YAMLs in the same transaction (spec.md
	// §4.5 "delete_generation").
	DeleteGeneration(ctx context.Context, roomID int64) error
	UpdateGenerationStatus(ctx context.Context, roomID int64, status models.GenerationStatus) error
	AssociatePatchFiles(ctx context.Context, roomID int64, patches map[int64]string) error
}

const (
	minYAMLsForGeneration = 1
	maxYAMLsForGeneration = 50
)

// CheckPreflight verifies spec.md §4.4's checklist: the room is closed,
// every YAML in it is Validated or ManuallyValidated, it holds 1-50
// YAMLs, and no in-progress generation record exists for it. roomClosed
// is the caller's room.IsClosed(time.Now()) result.
func CheckPreflight(room *models.Room, yamls []*models.YAML, existing *models.GenerationRecord, roomClosed bool) error {
	if !roomClosed {
		return apperror.PreconditionFailed("room must be closed before generation")
	}
	if len(yamls) < minYAMLsForGeneration || len(yamls) > maxYAMLsForGeneration {
		return apperror.PreconditionFailed("room must have between %d and %d yamls, has %d", minYAMLsForGeneration, maxYAMLsForGeneration, len(yamls))
	}
	for _, y := range yamls {
		if !y.ValidationStatus.IsResolved() {
			return apperror.PreconditionFailed("yaml %d is not validated (status %q)", y.ID, y.ValidationStatus)
		}
	}
	if existing.IsInProgress() {
		return apperror.PreconditionFailed("room %d already has a generation in progress", room.ID)
	}
	return nil
}

// RequiredApworlds computes the exact (name, version) list spec.md §4.4
// step 2 names: the union of every apworld referenced across yamls'
// resolved sets, deterministically ordered by name.
func RequiredApworlds(yamls []*models.YAML) []models.NameVersion {
	rs := make(models.ResolvedSet)
	for _, y := range yamls {
		for _, nv := range y.ResolvedApworlds {
			rs[nv.Name] = models.ResolvedApworld{Version: nv.Version}
		}
	}
	return rs.NameVersions()
}

// Freeze implements spec.md §4.4 step 1: freeze the room's manifest
// against catalog and persist it, inside the caller's transaction.
func Freeze(ctx context.Context, store RoomStore, room *models.Room, catalog *index.Catalog) (models.Manifest, error) {
	frozen, errs := index.Freeze(room.Manifest, catalog)
	if len(errs) > 0 {
		return nil, apperror.PreconditionFailed("manifest freeze failed for %d apworld(s)", len(errs))
	}
	if err := store.UpdateRoomManifest(ctx, room.ID, frozen); err != nil {
		return nil, apperror.WrapInternal(err, "persist frozen manifest")
	}
	return frozen, nil
}
