package bible

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Library holds the current Bible and swaps it when the source file changes.
type Library struct {
	path   string
	logger *slog.Logger
	bible  atomic.Pointer[Bible]

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewLibrary loads path. Call Start to follow changes to the file.
func NewLibrary(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}

	l := &Library{
		path:     filepath.Clean(path),
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Bible returns the currently loaded text.
func (l *Library) Bible() *Bible {
	return l.bible.Load()
}

// Reload re-reads the file. On failure the previous text stays in place.
func (l *Library) Reload() error {
	b, err := Load(l.path)
	if err != nil {
		return err
	}
	l.bible.Store(b)
	return nil
}

// Start watches the file's directory. It is a no-op when already running.
func (l *Library) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory instead of the file.
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(l.path), err)
	}

	l.watcher = w
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.running = true

	go l.run(ctx)

	l.logger.Info("bible_watch_started", slog.String("path", l.path))
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (l *Library) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	close(l.stopCh)
	<-l.doneCh

	if err := l.watcher.Close(); err != nil {
		l.logger.Error("bible_watch_close_failed", slog.String("error", err.Error()))
	}
}

func (l *Library) run(ctx context.Context) {
	defer close(l.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case <-l.stopCh:
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != l.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				pending = time.Now()
			}

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("bible_watch_error", slog.String("error", err.Error()))

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < l.debounce {
				continue
			}
			pending = time.Time{}
			if err := l.Reload(); err != nil {
				l.logger.Error("bible_reload_failed", slog.String("error", err.Error()))
				continue
			}
			l.logger.Info("bible_reloaded", slog.Int("verses", l.Bible().Len()))
		}
	}
}
