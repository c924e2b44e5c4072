package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/storely-ai/discovery-engine/internal/observability"
)

// debounceWindow coalesces editor write bursts into one reload.
const debounceWindow = 500 * time.Millisecond

// Watcher re-seeds the catalog whenever the seed file changes. Meant for
// development setups where the catalog is edited as a JSON file.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   CatalogWriter
	path    string
	logger  *observability.Logger
}

// NewWatcher creates a watcher for the given seed file.
func NewWatcher(store CatalogWriter, path string, logger *observability.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory rather than the file: editors replace files
	// on save, which would drop a direct file watch.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher: w,
		store:   store,
		path:    path,
		logger:  logger,
	}, nil
}

// Run blocks until ctx is cancelled, reloading the seed on changes.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			count, err := Seed(ctx, w.store, w.path, nil)
			if err != nil {
				w.logger.Error().Err(err).Str("path", w.path).Msg("Seed reload failed")
				continue
			}
			w.logger.Info().Int("products", count).Str("path", w.path).Msg("Catalog reloaded from seed")

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Seed watcher error")
		}
	}
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
