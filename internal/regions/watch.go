package regions

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Live holds the current table and swaps it when the backing file changes.
type Live struct {
	current atomic.Pointer[Table]
	logger  *slog.Logger
}

// NewLive wraps an initial table.
func NewLive(initial *Table, logger *slog.Logger) *Live {
	l := &Live{logger: logger}
	l.current.Store(initial)
	return l
}

// Current returns the table in effect.
func (l *Live) Current() *Table {
	return l.current.Load()
}

// Reload re-reads path. A file that fails to parse leaves the current table in place.
func (l *Live) Reload(path string) error {
	t, err := Load(path)
	if err != nil {
		return err
	}
	l.current.Store(t)
	l.logger.Info("regions table reloaded", "path", path, "provinces", len(t.Provinces()))
	return nil
}

// Watch reloads the table whenever path is written, created or renamed into place.
// The parent directory is watched so editors that replace the file are seen.
// It returns once the watch is established; the loop runs until ctx is done.
func (l *Live) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("regions watcher: %w", err)
	}
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("regions watcher: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := l.Reload(target); err != nil {
					l.logger.Warn("regions reload failed, keeping previous table", "path", target, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("regions watcher error", "error", err)
			}
		}
	}()
	return nil
}
