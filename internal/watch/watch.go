// Package watch re-runs a bake when its input files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the inputs must stay quiet before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// RebuildFunc is called after the watched files settle.
type RebuildFunc func(ctx context.Context) error

// Watcher debounces file events into rebuilds.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	rebuild  RebuildFunc
	log      *zap.Logger
}

// New watches paths. Their parent directories are watched so files
// replaced by rename (as most editors save) are still seen.
func New(paths []string, debounce time.Duration, rebuild RebuildFunc, log *zap.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watch: no files")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fsw,
		files:    make(map[string]struct{}, len(paths)),
		debounce: debounce,
		rebuild:  rebuild,
		log:      log,
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled. Rebuild errors are logged and the
// watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	// Reset never delivers a stale tick (Go 1.23 timer semantics).
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(e) {
				continue
			}
			w.log.Debug("input changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			w.log.Info("rebuilding")
			start := time.Now()
			if err := w.rebuild(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.Error("rebuild failed", zap.Error(err))
				continue
			}
			w.log.Info("rebuild finished", zap.Duration("duration", time.Since(start)))
		}
	}
}

func (w *Watcher) relevant(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(e.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}
