package generation

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/roomhub/internal/models"
)

func writeTestZip(t *testing.T, dir string, names ...string) string {
	t.Helper()
	path := filepath.Join(dir, "output.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, name := range names {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte("fake patch contents")); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCorrelatePatchFilesMatchesSlotNumbers(t *testing.T) {
	dir := t.TempDir()
	zipPath := writeTestZip(t, dir,
		"AP_20240101_P1_Alice.apbp",
		"AP_20240101_P2_Bob.apbp",
		"spoiler.txt",
	)

	slots, err := CorrelatePatchFiles(zipPath)
	if err != nil {
		t.Fatal(err)
	}

	if slots[1] != "AP_20240101_P1_Alice.apbp" {
		t.Fatalf("expected slot 1 to match Alice's patch, got %q", slots[1])
	}
	if slots[2] != "AP_20240101_P2_Bob.apbp" {
		t.Fatalf("expected slot 2 to match Bob's patch, got %q", slots[2])
	}
	if _, ok := slots[3]; ok {
		t.Fatal("spoiler.txt should not match the patch file regex")
	}
}

func TestAssociateSlotsToYAMLsMapsBySlotOrder(t *testing.T) {
	ordered := []*models.YAML{{ID: 100}, {ID: 200}, {ID: 300}}
	slots := map[int]string{1: "AP_1_P1_a.apbp", 3: "AP_1_P3_c.apbp"}

	got := AssociateSlotsToYAMLs(ordered, slots)

	if got[100] != "AP_1_P1_a.apbp" {
		t.Fatalf("expected yaml 100 to get slot 1's patch, got %q", got[100])
	}
	if got[300] != "AP_1_P3_c.apbp" {
		t.Fatalf("expected yaml 300 to get slot 3's patch, got %q", got[300])
	}
	if _, ok := got[200]; ok {
		t.Fatal("yaml 200 (slot 2) had no correlated patch and should be absent")
	}
}

func TestFindZipReturnsNotFoundWhenNoZipPresent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "log.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := findZip(dir); err == nil {
		t.Fatal("expected findZip to fail when no zip is present")
	}
}

func TestFindZipReturnsTheZipFile(t *testing.T) {
	dir := t.TempDir()
	want := writeTestZip(t, dir, "AP_1_P1_a.apbp")

	got, err := findZip(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
