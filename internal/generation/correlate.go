package generation

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	kflate "github.com/klauspost/compress/flate"

	"github.com/odvcencio/roomhub/internal/apperror"
	"github.com/odvcencio/roomhub/internal/models"
	"github.com/odvcencio/roomhub/internal/queue"
)

// patchFileRegex is spec.md §4.4's exact correlation pattern: capture the
// 1-based slot number from a name like "AP_20240101_P3_baz.apbp".
var patchFileRegex = regexp.MustCompile(`^AP[_-]\d+[_-]P(\d+)[_-](.*)\.[^.]+$`)

var registerFastFlateOnce sync.Once

// registerFastFlate swaps archive/zip's default flate decompressor for
// klauspost/compress's, which gothub's own internal/gotprotocol pulls in
// for its other compression needs — generation output zips can run into
// the hundreds of megabytes, and klauspost/compress/flate decodes
// noticeably faster than compress/flate for that size class.
func registerFastFlate() {
	registerFastFlateOnce.Do(func() {
		zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
			return kflate.NewReader(r)
		})
	})
}

// CorrelatePatchFiles implements spec.md §4.4's resolver-callback
// correlation step: list the output zip's entries, match each against
// patchFileRegex, and return a map of 1-based slot number to file name
// for every match. It never opens a matched entry's contents — zip entry
// listing alone is enough to recover names.
func CorrelatePatchFiles(zipPath string) (map[int]string, error) {
	registerFastFlate()

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, apperror.WrapInternal(err, "open generation output zip")
	}
	defer r.Close()

	slots := make(map[int]string)
	for _, f := range r.File {
		name := filepath.Base(f.Name)
		m := patchFileRegex.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		slot, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slots[slot] = name
	}
	return slots, nil
}

// AssociateSlotsToYAMLs maps CorrelatePatchFiles's slot->filename output
// onto the room's authoritative GetSlots ordering, producing the
// yaml_id->patch_name map spec.md §4.5's associate_patch_files expects.
func AssociateSlotsToYAMLs(ordered []*models.YAML, slots map[int]string) map[int64]string {
	out := make(map[int64]string, len(slots))
	for i, y := range ordered {
		slot := i + 1
		if name, ok := slots[slot]; ok {
			out[y.ID] = name
		}
	}
	return out
}

// Resolver implements spec.md §4.4's generation resolver callback.
type Resolver struct {
	Store     RoomStore
	OutputDir func(jobID string) string
}

// NewResolver constructs a Resolver. outputDir maps a job_id to its
// `{generation_output_dir}/{job_id}/` directory.
func NewResolver(store RoomStore, outputDir func(jobID string) string) *Resolver {
	return &Resolver{Store: store, OutputDir: outputDir}
}

// Resolve implements queue.Resolver[Result]: update the generation
// record's status and, on success, correlate patch files back to YAMLs
// (spec.md §4.4 "Resolver callback" steps 1-2).
func (r *Resolver) Resolve(ctx context.Context, jobID queue.JobID, result queue.JobResult[Result]) error {
	record, err := r.Store.GetGenerationByJobID(ctx, string(jobID))
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil // already processed or cancelled
		}
		return err
	}

	if result.Status != queue.StatusSuccess {
		return r.Store.UpdateGenerationStatus(ctx, record.RoomID, models.GenerationFailed)
	}

	yamls, err := r.Store.ListRoomYAMLs(ctx, record.RoomID)
	if err != nil {
		return apperror.WrapInternal(err, "list room yamls for correlation")
	}
	ordered := GetSlots(yamls)

	zipPath, err := findZip(r.OutputDir(string(jobID)))
	if err != nil {
		return err
	}
	slots, err := CorrelatePatchFiles(zipPath)
	if err != nil {
		return err
	}
	patches := AssociateSlotsToYAMLs(ordered, slots)

	if err := r.Store.AssociatePatchFiles(ctx, record.RoomID, patches); err != nil {
		return apperror.WrapInternal(err, "associate patch files")
	}
	return r.Store.UpdateGenerationStatus(ctx, record.RoomID, models.GenerationDone)
}

// findZip locates the single `*.zip` file spec.md §4.4's worker contract
// promises exists under dir.
func findZip(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", apperror.WrapInternal(err, "read generation output directory")
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".zip" {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", apperror.NotFound("no .zip artifact found in %q", dir)
}
