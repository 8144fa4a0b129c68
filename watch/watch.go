// Package watch reports icon files created in the icon directories of a
// workspace and changes to its config file.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/akhenakh/iconify-lsp/config"
	"github.com/akhenakh/iconify-lsp/icon"
)

// Handlers receive watcher events. Nil handlers are skipped.
type Handlers struct {
	// OnCreate is called with the absolute path of a created .json or .svg
	// file.
	OnCreate func(path string)
	// OnConfigChange is called when the workspace config file is written.
	OnConfigChange func()
}

// Watcher watches the directories of one icon layout.
type Watcher struct {
	fsw      *fsnotify.Watcher
	handlers Handlers
	logger   *slog.Logger

	mu      sync.Mutex
	layout  icon.Layout
	watched map[string]bool

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a watcher. Call Reset to choose the watched directories and
// Start to begin delivering events.
func New(h Handlers, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsw:      fsw,
		handlers: h,
		logger:   logger,
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
	}, nil
}

// Reset watches the workspace root, the icon directory with its set
// directories, and every custom set directory of layout. Directories that
// do not exist are skipped.
func (w *Watcher) Reset(layout icon.Layout) {
	want := map[string]bool{layout.Root: true}
	iconDir := layout.IconDirPath()
	want[iconDir] = true
	if entries, err := os.ReadDir(iconDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				want[filepath.Join(iconDir, e.Name())] = true
			}
		}
	}
	for _, dir := range layout.CustomSetDirs() {
		want[dir] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.layout = layout
	for dir := range w.watched {
		if !want[dir] {
			_ = w.fsw.Remove(dir)
			delete(w.watched, dir)
		}
	}
	for dir := range want {
		w.addLocked(dir)
	}
}

func (w *Watcher) addLocked(dir string) {
	if w.watched[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Debug("not watching directory", "path", dir, "error", err)
		return
	}
	w.watched[dir] = true
	w.logger.Debug("watching directory", "path", dir)
}

// Watched returns the watched directories.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for dir := range w.watched {
		out = append(out, dir)
	}
	return out
}

// Start delivers events on a new goroutine until ctx is done or the
// watcher is closed.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	layout := w.layout
	w.mu.Unlock()

	if config.IsWorkspaceFile(path) && filepath.Dir(path) == layout.Root {
		if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			w.logger.Debug("workspace config changed", "path", path, "op", event.Op.String())
			if w.handlers.OnConfigChange != nil {
				w.handlers.OnConfigChange()
			}
		}
		return
	}

	if !event.Has(fsnotify.Create) {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if w.isIconDirectory(layout, path) {
			w.mu.Lock()
			w.addLocked(path)
			w.mu.Unlock()
		}
		return
	}

	if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".svg") {
		w.logger.Debug("icon file created", "path", path)
		if w.handlers.OnCreate != nil {
			w.handlers.OnCreate(path)
		}
	}
}

// isIconDirectory reports whether a created directory holds icons: the
// icon directory itself, one of its set directories, or a custom set
// directory.
func (w *Watcher) isIconDirectory(layout icon.Layout, dir string) bool {
	iconDir := layout.IconDirPath()
	if dir == iconDir || filepath.Dir(dir) == iconDir {
		return true
	}
	for _, custom := range layout.CustomSetDirs() {
		if dir == custom {
			return true
		}
	}
	return false
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
