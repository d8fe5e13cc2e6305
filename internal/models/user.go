package models

import "time"

// User is the minimal identity row the Persistence Adapter contract names
// (spec §4.5). roomhub has no login flow of its own (authentication/OAuth
// is an external collaborator, spec §1) — this exists only so the
// validation pipeline's "room author" / "super admin" / "bypass list"
// checks (spec §4.3) have something to compare IDs against.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at"`
}
