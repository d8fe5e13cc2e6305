package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/odvcencio/roomhub/internal/models"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return db
}

func mustCreateUser(t *testing.T, db *SQLiteDB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func mustCreateRoom(t *testing.T, db *SQLiteDB, authorID int64) *models.Room {
	t.Helper()
	r := &models.Room{
		Slug:             "test-room",
		AuthorID:         authorID,
		CloseDate:        time.Now().Add(time.Hour),
		Manifest:         models.Manifest{"foo": models.Latest()},
		YAMLValidation:   true,
		YAMLLimitPerUser: 2,
		Bundling:         models.BundlingSolo,
		BypassUserIDs:    []int64{99},
	}
	if err := db.CreateRoom(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCreateAndGetUserRoundTrips(t *testing.T) {
	db := newTestDB(t)
	u := mustCreateUser(t, db, "alice")

	got, err := db.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "alice" {
		t.Fatalf("expected username alice, got %q", got.Username)
	}

	byName, err := db.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if byName.ID != u.ID {
		t.Fatalf("expected id %d, got %d", u.ID, byName.ID)
	}
}

func TestCreateAndGetRoomRoundTripsManifestAndBypassList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	room := mustCreateRoom(t, db, author.ID)

	got, err := db.GetRoomBySlug(ctx, "test-room")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != room.ID {
		t.Fatalf("expected room id %d, got %d", room.ID, got.ID)
	}
	if got.Manifest["foo"].Kind != models.SelectorLatest {
		t.Fatalf("expected manifest to round-trip, got %#v", got.Manifest)
	}
	if len(got.BypassUserIDs) != 1 || got.BypassUserIDs[0] != 99 {
		t.Fatalf("expected bypass list to round-trip, got %v", got.BypassUserIDs)
	}
}

func TestUpdateRoomManifestPersists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	room := mustCreateRoom(t, db, author.ID)

	frozen := models.Manifest{"foo": models.Specific("1.2.3")}
	if err := db.UpdateRoomManifest(ctx, room.ID, frozen); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Manifest["foo"].Version != "1.2.3" {
		t.Fatalf("expected frozen manifest to persist, got %#v", got.Manifest)
	}
}

func TestYAMLLifecycleCreateGetUpdateCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	submitter := mustCreateUser(t, db, "submitter")
	room := mustCreateRoom(t, db, author.ID)

	y := &models.YAML{
		RoomID:             room.ID,
		OwnerID:            submitter.ID,
		RawContent:         "name: Alice\ngame: Foo",
		ParsedPlayerName:   "Alice",
		ValidationStatus:   models.StatusPending,
		LastValidationTime: time.Now(),
	}
	if err := db.CreateYAML(ctx, y); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetYAML(ctx, y.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ParsedPlayerName != "Alice" {
		t.Fatalf("expected parsed player name Alice, got %q", got.ParsedPlayerName)
	}

	count, err := db.CountByOwner(ctx, room.ID, submitter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	resolved := []models.NameVersion{{Name: "foo", Version: "1.0.0"}}
	if err := db.UpdateYAMLValidation(ctx, y.ID, models.StatusValidated, resolved, "", time.Now()); err != nil {
		t.Fatal(err)
	}

	got, err = db.GetYAML(ctx, y.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ValidationStatus != models.StatusValidated {
		t.Fatalf("expected validated status, got %q", got.ValidationStatus)
	}
	if len(got.ResolvedApworlds) != 1 || got.ResolvedApworlds[0].Name != "foo" {
		t.Fatalf("expected resolved apworlds to round-trip, got %#v", got.ResolvedApworlds)
	}
}

func TestCountByBundleCountsOnlyMatchingBundle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	submitter := mustCreateUser(t, db, "submitter")
	room := mustCreateRoom(t, db, author.ID)

	for _, bundle := range []string{"b1", "b1", "b2"} {
		y := &models.YAML{RoomID: room.ID, OwnerID: submitter.ID, BundleID: bundle, RawContent: "x"}
		if err := db.CreateYAML(ctx, y); err != nil {
			t.Fatal(err)
		}
	}

	count, err := db.CountByBundle(ctx, room.ID, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 yamls in bundle b1, got %d", count)
	}
}

func TestListRoomYAMLsReturnsAllRowsForRoom(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	submitter := mustCreateUser(t, db, "submitter")
	room := mustCreateRoom(t, db, author.ID)

	for i := 0; i < 3; i++ {
		y := &models.YAML{RoomID: room.ID, OwnerID: submitter.ID, RawContent: "x"}
		if err := db.CreateYAML(ctx, y); err != nil {
			t.Fatal(err)
		}
	}

	yamls, err := db.ListRoomYAMLs(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(yamls) != 3 {
		t.Fatalf("expected 3 yamls, got %d", len(yamls))
	}
}

func TestGenerationRecordLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	room := mustCreateRoom(t, db, author.ID)

	if existing, err := db.GetGeneration(ctx, room.ID); err != nil {
		t.Fatal(err)
	} else if existing != nil {
		t.Fatal("expected no generation record before insert")
	}

	if err := db.InsertGeneration(ctx, room.ID, "job-1"); err != nil {
		t.Fatal(err)
	}

	rec, err := db.GetGeneration(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.GenerationPending {
		t.Fatalf("expected pending status, got %q", rec.Status)
	}

	byJobID, err := db.GetGenerationByJobID(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if byJobID.RoomID != room.ID {
		t.Fatalf("expected room id %d, got %d", room.ID, byJobID.RoomID)
	}

	if err := db.UpdateGenerationStatus(ctx, room.ID, models.GenerationDone); err != nil {
		t.Fatal(err)
	}
	rec, err = db.GetGeneration(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != models.GenerationDone {
		t.Fatalf("expected done status, got %q", rec.Status)
	}

	if err := db.DeleteGeneration(ctx, room.ID); err != nil {
		t.Fatal(err)
	}
	rec, err = db.GetGeneration(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Fatal("expected generation record to be gone after delete")
	}
}

func TestAssociatePatchFilesClearsStaleEntriesThenSetsNew(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	submitter := mustCreateUser(t, db, "submitter")
	room := mustCreateRoom(t, db, author.ID)

	y1 := &models.YAML{RoomID: room.ID, OwnerID: submitter.ID, RawContent: "x"}
	y2 := &models.YAML{RoomID: room.ID, OwnerID: submitter.ID, RawContent: "x"}
	if err := db.CreateYAML(ctx, y1); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateYAML(ctx, y2); err != nil {
		t.Fatal(err)
	}

	if err := db.AssociatePatchFiles(ctx, room.ID, map[int64]string{y1.ID: "patch1.apbp"}); err != nil {
		t.Fatal(err)
	}
	got1, err := db.GetYAML(ctx, y1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got1.PatchFile == nil || *got1.PatchFile != "patch1.apbp" {
		t.Fatalf("expected y1 to carry patch1.apbp, got %v", got1.PatchFile)
	}

	// A second correlation run must clear the stale entry before setting the new one.
	if err := db.AssociatePatchFiles(ctx, room.ID, map[int64]string{y2.ID: "patch2.apbp"}); err != nil {
		t.Fatal(err)
	}
	got1, err = db.GetYAML(ctx, y1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got1.PatchFile != nil {
		t.Fatalf("expected y1's stale patch to be cleared, got %v", *got1.PatchFile)
	}
	got2, err := db.GetYAML(ctx, y2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got2.PatchFile == nil || *got2.PatchFile != "patch2.apbp" {
		t.Fatalf("expected y2 to carry patch2.apbp, got %v", got2.PatchFile)
	}
}

func TestRoomAuthorizerRules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := mustCreateUser(t, db, "author")
	admin := &models.User{Username: "admin", PasswordHash: "h", IsSuperAdmin: true}
	if err := db.CreateUser(ctx, admin); err != nil {
		t.Fatal(err)
	}
	room := mustCreateRoom(t, db, author.ID)

	authz := NewRoomAuthorizer(db)
	if !authz.IsRoomAuthor(ctx, room, author.ID) {
		t.Fatal("expected room author to be recognized")
	}
	if !authz.IsBypassListed(ctx, room, 99) {
		t.Fatal("expected bypass-listed user to be recognized")
	}
	if authz.IsBypassListed(ctx, room, 12345) {
		t.Fatal("expected non-bypassed user to be rejected")
	}
	if !authz.IsSuperAdmin(ctx, admin.ID) {
		t.Fatal("expected super admin to be recognized")
	}
}
