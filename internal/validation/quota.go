package validation

import (
	"context"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
)

// Authorizer answers the role questions spec.md §4.3's quota paragraph
// needs (bypass list, room author, super admin) without this package
// implementing role storage or session handling itself — authorization
// is a named Non-goal (SPEC_FULL.md §5).
type Authorizer interface {
	IsRoomAuthor(ctx context.Context, room *models.Room, userID int64) bool
	IsBypassListed(ctx context.Context, room *models.Room, userID int64) bool
	IsSuperAdmin(ctx context.Context, userID int64) bool
}

// ExistingYAMLCounter counts YAMLs already stored for quota purposes.
// CountByOwner counts per-author (solo rooms); CountByBundle counts
// per-bundle (bundle rooms), per SPEC_FULL.md §5.
type ExistingYAMLCounter interface {
	CountByOwner(ctx context.Context, roomID, ownerID int64) (int, error)
	CountByBundle(ctx context.Context, roomID int64, bundleID string) (int, error)
}

// CheckQuota enforces spec.md §4.3's per-YAML quota, counting per-bundle
// when room.Bundling is BundlingBundle and per-author otherwise
// (SPEC_FULL.md §5). A room author, bypass-listed user, or super-admin is
// always exempt.
func CheckQuota(ctx context.Context, room *models.Room, submitterID int64, bundleID string, counter ExistingYAMLCounter, authz Authorizer) error {
	if room.YAMLLimitPerUser <= 0 {
		return nil
	}
	if authz.IsRoomAuthor(ctx, room, submitterID) || authz.IsBypassListed(ctx, room, submitterID) || authz.IsSuperAdmin(ctx, submitterID) {
		return nil
	}

	var count int
	var err error
	if room.Bundling == models.BundlingBundle && bundleID != "" {
		count, err = counter.CountByBundle(ctx, room.ID, bundleID)
	} else {
		count, err = counter.CountByOwner(ctx, room.ID, submitterID)
	}
	if err != nil {
		return apperror.WrapInternal(err, "count existing yamls for quota check")
	}

	if count >= room.YAMLLimitPerUser {
		return apperror.PreconditionFailed("yaml limit of %d reached for this room", room.YAMLLimitPerUser)
	}
	return nil
}
