package persistence

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/odvcencio/roomhub/internal/apperror"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// PostgresDB is the production backend, a thin wrapper over database/sql
// using pgx's stdlib driver shim (the teacher's own driver choice,
// internal/database/postgres.go).
type PostgresDB struct {
	*base
}

// OpenPostgres opens a connection pool against dsn and verifies
// reachability before returning.
func OpenPostgres(dsn string) (*PostgresDB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, apperror.WrapInternal(err, "open postgres")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperror.WrapInternal(err, "ping postgres")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &PostgresDB{base: &base{db: db, dialect: dialectPostgres}}, nil
}

func (p *PostgresDB) Close() error { return p.db.Close() }

func (p *PostgresDB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(postgresMigrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return apperror.WrapInternal(err, "set goose dialect")
	}
	if err := goose.UpContext(ctx, p.db, "migrations/postgres"); err != nil {
		return apperror.WrapInternal(err, "run postgres migrations")
	}
	return nil
}
