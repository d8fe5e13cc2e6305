package persistence

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"

	"github.com/odvcencio/roomhub/internal/apperror"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// SQLiteDB is the local/test backend, matching the teacher's own
// WAL-mode, foreign-keys-on pragma tuning (internal/database/sqlite.go).
type SQLiteDB struct {
	*base
}

// OpenSQLite opens dsn (a file path, or ":memory:" for tests) and applies
// the teacher's pragma set.
func OpenSQLite(dsn string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperror.WrapInternal(err, "open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperror.WrapInternal(err, "apply sqlite pragma")
		}
	}
	return &SQLiteDB{base: &base{db: db, dialect: dialectSQLite}}, nil
}

func (s *SQLiteDB) Close() error { return s.db.Close() }

func (s *SQLiteDB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(sqliteMigrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return apperror.WrapInternal(err, "set goose dialect")
	}
	if err := goose.UpContext(ctx, s.db, "migrations/sqlite"); err != nil {
		return apperror.WrapInternal(err, "run sqlite migrations")
	}
	return nil
}
