package index

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/odvcencio/roomhub/internal/apperror"
)

// ReloadHandler is invoked once with the new catalog every time the
// catalog file changes and reloads successfully. It receives no room: the
// Watcher itself does not enumerate rooms or apply Manifest.UpdatedWith /
// ShouldRevalidate to any of them.
type ReloadHandler func(ctx context.Context, newCatalog *Catalog) error

// Watcher watches a catalog file path and invokes a ReloadHandler on every
// write, reusing gothub's "watch one file, debounce nothing, just reload"
// posture — there is exactly one catalog file, so no directory-walk or
// glob matching is needed the way a general file-watcher library might
// support.
type Watcher struct {
	path    string
	handler ReloadHandler
	log     *slog.Logger

	mu      sync.RWMutex
	current *Catalog
}

// NewWatcher loads path once and constructs a Watcher ready to Run.
func NewWatcher(path string, handler ReloadHandler, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	catalog, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, handler: handler, log: log, current: catalog}, nil
}

// Current returns the most recently loaded catalog.
func (w *Watcher) Current() *Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run watches the catalog file until ctx is cancelled, reloading and
// invoking the ReloadHandler on every write event.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return apperror.WrapInternal(err, "create catalog file watcher")
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		return apperror.WrapInternal(err, "watch catalog file")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(ctx); err != nil {
				w.log.ErrorContext(ctx, "catalog reload failed, keeping previous catalog", "path", w.path, "error", err)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WarnContext(ctx, "catalog watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) error {
	catalog, err := LoadCatalogFile(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = catalog
	w.mu.Unlock()
	w.log.InfoContext(ctx, "catalog reloaded", "path", w.path, "apworlds", len(catalog.apworlds))
	return w.handler(ctx, catalog)
}
