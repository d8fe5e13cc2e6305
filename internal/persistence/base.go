package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
)

// dialect distinguishes the two SQL placeholder styles the drivers need;
// every query method below is otherwise identical across backends.
type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// base holds the query logic shared by PostgresDB and SQLiteDB. Only
// connection setup, migrations, and pragma tuning differ per driver.
type base struct {
	db      *sql.DB
	dialect dialect
}

// ph renders the nth (1-based) bind placeholder for the active dialect.
func (b *base) ph(n int) string {
	if b.dialect == dialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

func (b *base) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, b.db, fn)
}

// --- users ---

func (b *base) CreateUser(ctx context.Context, u *models.User) error {
	q := fmt.Sprintf(`INSERT INTO users (username, password_hash, is_super_admin) VALUES (%s, %s, %s) RETURNING id, created_at`,
		b.ph(1), b.ph(2), b.ph(3))
	row := conn(ctx, b.db).QueryRowContext(ctx, q, u.Username, u.PasswordHash, u.IsSuperAdmin)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return apperror.WrapInternal(err, "insert user")
	}
	return nil
}

func (b *base) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	q := fmt.Sprintf(`SELECT id, username, password_hash, is_super_admin, created_at FROM users WHERE id = %s`, b.ph(1))
	return b.scanUser(conn(ctx, b.db).QueryRowContext(ctx, q, id))
}

func (b *base) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	q := fmt.Sprintf(`SELECT id, username, password_hash, is_super_admin, created_at FROM users WHERE username = %s`, b.ph(1))
	return b.scanUser(conn(ctx, b.db).QueryRowContext(ctx, q, username))
}

func (b *base) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsSuperAdmin, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.WrapInternal(err, "scan user")
	}
	return &u, nil
}

// --- rooms ---

func (b *base) CreateRoom(ctx context.Context, r *models.Room) error {
	manifestJSON, err := json.Marshal(r.Manifest)
	if err != nil {
		return apperror.WrapInternal(err, "marshal manifest")
	}
	bypassJSON, err := json.Marshal(r.BypassUserIDs)
	if err != nil {
		return apperror.WrapInternal(err, "marshal bypass user ids")
	}

	q := fmt.Sprintf(`INSERT INTO rooms (slug, author_id, close_date, manifest, yaml_validation, allow_unsupported, allow_invalid_yamls, yaml_limit_per_user, bundling, bypass_user_ids)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s) RETURNING id, created_at`,
		b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5), b.ph(6), b.ph(7), b.ph(8), b.ph(9), b.ph(10))
	row := conn(ctx, b.db).QueryRowContext(ctx, q, r.Slug, r.AuthorID, r.CloseDate, string(manifestJSON),
		r.YAMLValidation, r.AllowUnsupported, r.AllowInvalidYAMLs, r.YAMLLimitPerUser, string(r.Bundling), string(bypassJSON))
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return apperror.WrapInternal(err, "insert room")
	}
	return nil
}

func (b *base) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	q := fmt.Sprintf(`SELECT id, slug, author_id, close_date, manifest, yaml_validation, allow_unsupported, allow_invalid_yamls, yaml_limit_per_user, bundling, bypass_user_ids, created_at
		FROM rooms WHERE id = %s`, b.ph(1))
	return b.scanRoom(conn(ctx, b.db).QueryRowContext(ctx, q, id))
}

func (b *base) GetRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	q := fmt.Sprintf(`SELECT id, slug, author_id, close_date, manifest, yaml_validation, allow_unsupported, allow_invalid_yamls, yaml_limit_per_user, bundling, bypass_user_ids, created_at
		FROM rooms WHERE slug = %s`, b.ph(1))
	return b.scanRoom(conn(ctx, b.db).QueryRowContext(ctx, q, slug))
}

func (b *base) scanRoom(row *sql.Row) (*models.Room, error) {
	var r models.Room
	var manifestJSON, bypassJSON, bundling string
	if err := row.Scan(&r.ID, &r.Slug, &r.AuthorID, &r.CloseDate, &manifestJSON, &r.YAMLValidation,
		&r.AllowUnsupported, &r.AllowInvalidYAMLs, &r.YAMLLimitPerUser, &bundling, &bypassJSON, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("room not found")
		}
		return nil, apperror.WrapInternal(err, "scan room")
	}
	r.Bundling = models.Bundling(bundling)
	if err := json.Unmarshal([]byte(manifestJSON), &r.Manifest); err != nil {
		return nil, apperror.WrapInternal(err, "unmarshal manifest")
	}
	if err := json.Unmarshal([]byte(bypassJSON), &r.BypassUserIDs); err != nil {
		return nil, apperror.WrapInternal(err, "unmarshal bypass user ids")
	}
	return &r, nil
}

func (b *base) UpdateRoomManifest(ctx context.Context, roomID int64, manifest models.Manifest) error {
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return apperror.WrapInternal(err, "marshal manifest")
	}
	q := fmt.Sprintf(`UPDATE rooms SET manifest = %s WHERE id = %s`, b.ph(1), b.ph(2))
	if _, err := conn(ctx, b.db).ExecContext(ctx, q, string(manifestJSON), roomID); err != nil {
		return apperror.WrapInternal(err, "update room manifest")
	}
	return nil
}

// --- yamls ---

func (b *base) CreateYAML(ctx context.Context, y *models.YAML) error {
	resolvedJSON, err := json.Marshal(y.ResolvedApworlds)
	if err != nil {
		return apperror.WrapInternal(err, "marshal resolved apworlds")
	}
	q := fmt.Sprintf(`INSERT INTO yamls (room_id, owner_id, bundle_id, raw_content, parsed_game, parsed_player_name, validation_status, resolved_apworlds, last_validation_time, last_error, patch_file)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s) RETURNING id, created_at`,
		b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5), b.ph(6), b.ph(7), b.ph(8), b.ph(9), b.ph(10), b.ph(11))
	row := conn(ctx, b.db).QueryRowContext(ctx, q, y.RoomID, y.OwnerID, y.BundleID, y.RawContent, y.ParsedGame,
		y.ParsedPlayerName, string(y.ValidationStatus), string(resolvedJSON), y.LastValidationTime, y.LastError, y.PatchFile)
	if err := row.Scan(&y.ID, &y.CreatedAt); err != nil {
		return apperror.WrapInternal(err, "insert yaml")
	}
	return nil
}

func (b *base) GetYAML(ctx context.Context, id int64) (*models.YAML, error) {
	q := fmt.Sprintf(`SELECT id, room_id, owner_id, bundle_id, raw_content, parsed_game, parsed_player_name, validation_status, resolved_apworlds, last_validation_time, last_error, patch_file, created_at
		FROM yamls WHERE id = %s`, b.ph(1))
	return b.scanYAML(conn(ctx, b.db).QueryRowContext(ctx, q, id))
}

func (b *base) scanYAML(row *sql.Row) (*models.YAML, error) {
	var y models.YAML
	var status, resolvedJSON string
	var lastValidationTime sql.NullTime
	if err := row.Scan(&y.ID, &y.RoomID, &y.OwnerID, &y.BundleID, &y.RawContent, &y.ParsedGame, &y.ParsedPlayerName,
		&status, &resolvedJSON, &lastValidationTime, &y.LastError, &y.PatchFile, &y.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("yaml not found")
		}
		return nil, apperror.WrapInternal(err, "scan yaml")
	}
	y.ValidationStatus = models.ValidationStatus(status)
	if lastValidationTime.Valid {
		y.LastValidationTime = lastValidationTime.Time
	}
	if err := json.Unmarshal([]byte(resolvedJSON), &y.ResolvedApworlds); err != nil {
		return nil, apperror.WrapInternal(err, "unmarshal resolved apworlds")
	}
	return &y, nil
}

func (b *base) UpdateYAMLValidation(ctx context.Context, id int64, status models.ValidationStatus, resolvedApworlds []models.NameVersion, lastError string, lastValidationTime time.Time) error {
	resolvedJSON, err := json.Marshal(resolvedApworlds)
	if err != nil {
		return apperror.WrapInternal(err, "marshal resolved apworlds")
	}
	q := fmt.Sprintf(`UPDATE yamls SET validation_status = %s, resolved_apworlds = %s, last_error = %s, last_validation_time = %s WHERE id = %s`,
		b.ph(1), b.ph(2), b.ph(3), b.ph(4), b.ph(5))
	if _, err := conn(ctx, b.db).ExecContext(ctx, q, string(status), string(resolvedJSON), lastError, lastValidationTime, id); err != nil {
		return apperror.WrapInternal(err, "update yaml validation")
	}
	return nil
}

func (b *base) ListRoomYAMLs(ctx context.Context, roomID int64) ([]*models.YAML, error) {
	q := fmt.Sprintf(`SELECT id, room_id, owner_id, bundle_id, raw_content, parsed_game, parsed_player_name, validation_status, resolved_apworlds, last_validation_time, last_error, patch_file, created_at
		FROM yamls WHERE room_id = %s`, b.ph(1))
	rows, err := conn(ctx, b.db).QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, apperror.WrapInternal(err, "list room yamls")
	}
	defer rows.Close()

	var out []*models.YAML
	for rows.Next() {
		var y models.YAML
		var status, resolvedJSON string
		var lastValidationTime sql.NullTime
		if err := rows.Scan(&y.ID, &y.RoomID, &y.OwnerID, &y.BundleID, &y.RawContent, &y.ParsedGame, &y.ParsedPlayerName,
			&status, &resolvedJSON, &lastValidationTime, &y.LastError, &y.PatchFile, &y.CreatedAt); err != nil {
			return nil, apperror.WrapInternal(err, "scan yaml row")
		}
		y.ValidationStatus = models.ValidationStatus(status)
		if lastValidationTime.Valid {
			y.LastValidationTime = lastValidationTime.Time
		}
		if err := json.Unmarshal([]byte(resolvedJSON), &y.ResolvedApworlds); err != nil {
			return nil, apperror.WrapInternal(err, "unmarshal resolved apworlds")
		}
		out = append(out, &y)
	}
	return out, rows.Err()
}

func (b *base) CountByOwner(ctx context.Context, roomID, ownerID int64) (int, error) {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM yamls WHERE room_id = %s AND owner_id = %s`, b.ph(1), b.ph(2))
	var n int
	if err := conn(ctx, b.db).QueryRowContext(ctx, q, roomID, ownerID).Scan(&n); err != nil {
		return 0, apperror.WrapInternal(err, "count yamls by owner")
	}
	return n, nil
}

func (b *base) CountByBundle(ctx context.Context, roomID int64, bundleID string) (int, error) {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM yamls WHERE room_id = %s AND bundle_id = %s`, b.ph(1), b.ph(2))
	var n int
	if err := conn(ctx, b.db).QueryRowContext(ctx, q, roomID, bundleID).Scan(&n); err != nil {
		return 0, apperror.WrapInternal(err, "count yamls by bundle")
	}
	return n, nil
}

// AssociatePatchFiles implements spec.md §4.5's associate_patch_files: it
// clears every patch_file in the room before setting the given entries,
// so a re-run generation never leaves a stale patch on an unmatched slot.
func (b *base) AssociatePatchFiles(ctx context.Context, roomID int64, patches map[int64]string) error {
	return b.WithTx(ctx, func(ctx context.Context) error {
		clearQ := fmt.Sprintf(`UPDATE yamls SET patch_file = NULL WHERE room_id = %s`, b.ph(1))
		if _, err := conn(ctx, b.db).ExecContext(ctx, clearQ, roomID); err != nil {
			return apperror.WrapInternal(err, "clear patch files")
		}
		setQ := fmt.Sprintf(`UPDATE yamls SET patch_file = %s WHERE id = %s AND room_id = %s`, b.ph(1), b.ph(2), b.ph(3))
		for yamlID, name := range patches {
			if _, err := conn(ctx, b.db).ExecContext(ctx, setQ, name, yamlID, roomID); err != nil {
				return apperror.WrapInternal(err, "set patch file")
			}
		}
		return nil
	})
}

// --- generation records ---

func (b *base) GetGeneration(ctx context.Context, roomID int64) (*models.GenerationRecord, error) {
	q := fmt.Sprintf(`SELECT room_id, job_id, status FROM generation_records WHERE room_id = %s`, b.ph(1))
	var g models.GenerationRecord
	var status string
	err := conn(ctx, b.db).QueryRowContext(ctx, q, roomID).Scan(&g.RoomID, &g.JobID, &status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.WrapInternal(err, "get generation record")
	}
	g.Status = models.GenerationStatus(status)
	return &g, nil
}

func (b *base) GetGenerationByJobID(ctx context.Context, jobID string) (*models.GenerationRecord, error) {
	q := fmt.Sprintf(`SELECT room_id, job_id, status FROM generation_records WHERE job_id = %s`, b.ph(1))
	var g models.GenerationRecord
	var status string
	err := conn(ctx, b.db).QueryRowContext(ctx, q, jobID).Scan(&g.RoomID, &g.JobID, &status)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("generation record for job %q not found", jobID)
	}
	if err != nil {
		return nil, apperror.WrapInternal(err, "get generation record by job id")
	}
	g.Status = models.GenerationStatus(status)
	return &g, nil
}

func (b *base) InsertGeneration(ctx context.Context, roomID int64, jobID string) error {
	q := fmt.Sprintf(`INSERT INTO generation_records (room_id, job_id, status) VALUES (%s, %s, %s)`, b.ph(1), b.ph(2), b.ph(3))
	if _, err := conn(ctx, b.db).ExecContext(ctx, q, roomID, jobID, string(models.GenerationPending)); err != nil {
		return apperror.WrapInternal(err, "insert generation record")
	}
	return nil
}

func (b *base) DeleteGeneration(ctx context.Context, roomID int64) error {
	return b.WithTx(ctx, func(ctx context.Context) error {
		delQ := fmt.Sprintf(`DELETE FROM generation_records WHERE room_id = %s`, b.ph(1))
		if _, err := conn(ctx, b.db).ExecContext(ctx, delQ, roomID); err != nil {
			return apperror.WrapInternal(err, "delete generation record")
		}
		clearQ := fmt.Sprintf(`UPDATE yamls SET patch_file = NULL WHERE room_id = %s`, b.ph(1))
		if _, err := conn(ctx, b.db).ExecContext(ctx, clearQ, roomID); err != nil {
			return apperror.WrapInternal(err, "clear patch files")
		}
		return nil
	})
}

func (b *base) UpdateGenerationStatus(ctx context.Context, roomID int64, status models.GenerationStatus) error {
	q := fmt.Sprintf(`UPDATE generation_records SET status = %s WHERE room_id = %s`, b.ph(1), b.ph(2))
	if _, err := conn(ctx, b.db).ExecContext(ctx, q, string(status), roomID); err != nil {
		return apperror.WrapInternal(err, "update generation status")
	}
	return nil
}
