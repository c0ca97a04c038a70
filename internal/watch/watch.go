// Package watch drives a debounced fsnotify loop that re-runs the
// extraction pipeline whenever a watched source file changes, for the CLI's
// `watch` subcommand.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const eventChannelBuffer = 1000

// Config configures the Watcher.
type Config struct {
	// Root is the directory tree to watch.
	Root string
	// DebounceDelay is how long to wait for more changes before
	// triggering a re-run. Defaults to 100ms.
	DebounceDelay time.Duration
	// Extensions restricts watched files; defaults to [".ts", ".tsx"].
	Extensions []string
	// ExcludeDirs are directory base names skipped entirely; defaults to
	// ["node_modules"].
	ExcludeDirs []string
	// Logger receives watcher diagnostics; defaults to slog.Default().
	Logger *slog.Logger
}

// Event reports one debounced re-run trigger.
type Event struct {
	// Paths lists every file that changed since the last Event, relative
	// to Root.
	Paths []string
}

// Watcher watches Root for source-file changes and emits a debounced Event
// on Events() after each burst of changes settles.
type Watcher struct {
	cfg        Config
	fsw        *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	pendingMu sync.Mutex
	pending   map[string]bool

	events chan Event

	droppedEvents atomic.Int64
}

// New creates a Watcher rooted at cfg.Root.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	extensions := make(map[string]bool)
	if len(cfg.Extensions) == 0 {
		extensions[".ts"] = true
		extensions[".tsx"] = true
	} else {
		for _, ext := range cfg.Extensions {
			extensions[ext] = true
		}
	}

	excludes := make(map[string]bool)
	if len(cfg.ExcludeDirs) == 0 {
		excludes["node_modules"] = true
	} else {
		for _, dir := range cfg.ExcludeDirs {
			excludes[dir] = true
		}
	}

	return &Watcher{
		cfg:        cfg,
		fsw:        fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]bool),
		events:     make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of debounced change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// DroppedEvents returns the number of events dropped because Events()
// wasn't being drained.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// Start adds recursive watches under Root and begins the debounce loop.
// Stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.cfg.Root); err != nil {
		return err
	}
	go w.loop(ctx)
	w.logger.Info("watcher started", slog.String("root", w.cfg.Root))
	return nil
}

// Stop closes the underlying fsnotify watcher and the Events channel.
func (w *Watcher) Stop() error {
	close(w.events)
	return w.fsw.Close()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if w.excludes[base] || strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.DebounceDelay)
	defer ticker.Stop()
	var lastChange time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
			lastChange = time.Now()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", slog.String("error", err.Error()))
		case <-ticker.C:
			if time.Since(lastChange) >= w.cfg.DebounceDelay {
				w.flush()
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name
	ext := filepath.Ext(path)
	if !w.extensions[ext] {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.watchNewDirectory(path)
			}
		}
		return
	}

	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		rel = path
	}
	for dir := range w.excludes {
		if strings.Contains(rel, dir+"/") {
			return
		}
	}

	w.pendingMu.Lock()
	w.pending[rel] = true
	w.pendingMu.Unlock()
}

func (w *Watcher) watchNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	select {
	case w.events <- Event{Paths: paths}:
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("event channel full, dropping event", slog.Int64("total_dropped", dropped))
	}
}
