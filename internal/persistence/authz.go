package persistence

import (
	"context"

	"github.com/odvcencio/roomhub/internal/models"
)

// RoomAuthorizer implements validation.Authorizer against a DB, the only
// persistence-backed question being super-admin status — room authorship
// and the bypass list are already present on the Room the caller holds.
type RoomAuthorizer struct {
	DB DB
}

func NewRoomAuthorizer(db DB) *RoomAuthorizer {
	return &RoomAuthorizer{DB: db}
}

func (a *RoomAuthorizer) IsRoomAuthor(ctx context.Context, room *models.Room, userID int64) bool {
	return room.AuthorID == userID
}

func (a *RoomAuthorizer) IsBypassListed(ctx context.Context, room *models.Room, userID int64) bool {
	for _, id := range room.BypassUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (a *RoomAuthorizer) IsSuperAdmin(ctx context.Context, userID int64) bool {
	u, err := a.DB.GetUserByID(ctx, userID)
	if err != nil {
		return false
	}
	return u.IsSuperAdmin
}
