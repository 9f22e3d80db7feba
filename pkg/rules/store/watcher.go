package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the document watcher.
type WatcherConfig struct {
	// DebounceInterval is how long to wait after the last event on a path
	// before invalidating, preventing invalidation storms while an editor
	// or deploy is still writing (default: 200ms).
	DebounceInterval time.Duration

	// Extensions is the list of file extensions to watch.
	Extensions []string
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: 200 * time.Millisecond,
		Extensions:       []string{".yaml", ".yml"},
	}
}

// Watcher watches the rule document tree and marks the store's cache dirty
// when a document changes. Invalidation is lazy: the next Load re-hashes
// the document and reloads only when its content actually changed.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	config  *WatcherConfig
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher bound to the given store.
func NewWatcher(store *Store, config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		store:   store,
		watcher: fsw,
		config:  config,
		logger:  logger.With("component", "rules.watcher"),
		pending: make(map[string]*time.Timer),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Watch starts watching the store's document directory. It blocks until the
// context is cancelled or Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.addTree(w.store.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch rule directory: %w", err)
	}

	w.logger.Info("rule document watcher started",
		"dir", w.store.cfg.Dir,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rule document watcher stopped (context cancelled)")
			return nil
		case <-w.stopCh:
			w.logger.Info("rule document watcher stopped")
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return nil
	}
	close(w.stopCh)
	<-w.doneCh
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New subdirectories (a new jurisdiction) must be added to the watch.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Error("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.watchesExtension(event.Name) {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
		return
	}

	// Debounce per path: reset the timer on every event, fire once quiet.
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[event.Name]; ok {
		timer.Stop()
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.logger.Info("rule document changed", "path", path)
		w.store.InvalidatePath(path)
	})
}

func (w *Watcher) watchesExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.config.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}
