package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a Reloader waits after the last file event.
const DefaultDebounce = 150 * time.Millisecond

// Reloader keeps a Holder in sync with a catalog file. It watches the file's
// directory so editors that replace the file by rename are picked up too.
// A document that fails to load is logged and the current snapshot stays.
type Reloader struct {
	Source   *FileSource
	Holder   *Holder
	Debounce time.Duration
	Log      zerolog.Logger
}

// Run watches until ctx ends.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(r.Source.Path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	debounce := r.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				r.Log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("catalog change detected")
				fire = time.After(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.Log.Warn().Err(err).Msg("watcher error")

		case <-fire:
			fire = nil
			r.Reload(ctx)
		}
	}
}

// Reload loads the file once and publishes the result if its fingerprint
// changed. It reports whether a new snapshot was published.
func (r *Reloader) Reload(ctx context.Context) bool {
	snap, err := LoadSnapshot(ctx, r.Source)
	if err != nil {
		r.Log.Error().Err(err).Str("source", r.Source.Describe()).Msg("catalog reload failed; keeping current snapshot")
		return false
	}
	if cur := r.Holder.Load(); cur != nil && cur.ETag == snap.ETag {
		return false
	}
	r.Holder.Update(snap)
	r.Log.Info().Str("etag", snap.ETag).Str("version", snap.Version).Msg("catalog reloaded")
	return true
}
