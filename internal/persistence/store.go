// Package persistence provides the durable accessor layer spec.md §4.5
// names: rooms, YAMLs, generation records, and user identities, behind a
// single DB interface with Postgres (pgx) and SQLite (modernc.org/sqlite)
// implementations, following the teacher's database.DB shape
// (Close/Migrate plus typed per-entity methods) with goose-managed schema
// migrations in place of gothub's ad hoc ALTER TABLE backfills.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/odvcencio/roomhub/internal/models"
)

// DB is the full persistence surface: the teacher's Close/Migrate
// lifecycle plus every typed accessor the queue, index, validation, and
// generation packages' seam interfaces require.
type DB interface {
	Close() error
	Migrate(ctx context.Context) error

	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	CreateRoom(ctx context.Context, r *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error)
	UpdateRoomManifest(ctx context.Context, roomID int64, manifest models.Manifest) error

	CreateYAML(ctx context.Context, y *models.YAML) error
	GetYAML(ctx context.Context, id int64) (*models.YAML, error)
	UpdateYAMLValidation(ctx context.Context, id int64, status models.ValidationStatus, resolvedApworlds []models.NameVersion, lastError string, lastValidationTime time.Time) error
	ListRoomYAMLs(ctx context.Context, roomID int64) ([]*models.YAML, error)
	CountByOwner(ctx context.Context, roomID, ownerID int64) (int, error)
	CountByBundle(ctx context.Context, roomID int64, bundleID string) (int, error)
	AssociatePatchFiles(ctx context.Context, roomID int64, patches map[int64]string) error

	GetGeneration(ctx context.Context, roomID int64) (*models.GenerationRecord, error)
	GetGenerationByJobID(ctx context.Context, jobID string) (*models.GenerationRecord, error)
	InsertGeneration(ctx context.Context, roomID int64, jobID string) error
	DeleteGeneration(ctx context.Context, roomID int64) error
	UpdateGenerationStatus(ctx context.Context, roomID int64, status models.GenerationStatus) error
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting every query
// method run unmodified whether or not a transaction is in flight.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txContextKey struct{}

// conn returns the in-flight transaction stashed in ctx by WithTx, or db
// if no transaction is active — the same context-carried-value idiom the
// teacher uses for tenant scoping (internal/database/tenant_context.go).
func conn(ctx context.Context, db *sql.DB) dbtx {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
