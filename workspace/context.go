// Package workspace keeps one icon context per workspace folder: its
// settings, its lazily built icon index and its decoration image cache.
package workspace

import (
	"log/slog"
	"sync"

	"github.com/akhenakh/iconify-lsp/config"
	"github.com/akhenakh/iconify-lsp/icon"
	"github.com/akhenakh/iconify-lsp/metrics"
	"github.com/akhenakh/iconify-lsp/render"
)

// Context is the icon state of one workspace folder.
// It is safe for concurrent use.
type Context struct {
	name    string
	root    string
	logger  *slog.Logger
	metrics *metrics.Metrics

	renderer *render.Renderer

	mu       sync.Mutex
	client   config.Settings
	settings *config.Settings
	index    *icon.Index
	images   map[string]string
	onBuild  []func(*icon.Index)
	onClose  []func()
	closed   bool
}

func newContext(name, root string, client config.Settings, logger *slog.Logger, m *metrics.Metrics) *Context {
	c := &Context{
		name:    name,
		root:    root,
		logger:  logger.With("workspace", name),
		metrics: m,
		client:  client,
		images:  make(map[string]string),
	}
	c.renderer = render.New(c, render.WithLogger(c.logger), render.WithMetrics(m))
	return c
}

// Name returns the workspace folder name.
func (c *Context) Name() string { return c.name }

// Root returns the absolute workspace root.
func (c *Context) Root() string { return c.root }

// Renderer returns the renderer of the workspace, which follows the color
// theme of its settings.
func (c *Context) Renderer() *render.Renderer { return c.renderer }

// Dark implements render.ThemeSource.
func (c *Context) Dark() bool {
	return c.Settings().Dark()
}

// Settings returns the client settings overlaid by the workspace config
// file. A config file that cannot be read is logged and ignored.
func (c *Context) Settings() config.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settingsLocked().Clone()
}

func (c *Context) settingsLocked() config.Settings {
	if c.settings != nil {
		return *c.settings
	}
	s := c.client
	file, found, err := config.LoadWorkspaceFile(c.root)
	switch {
	case err != nil:
		c.logger.Warn("ignoring workspace config file", "error", err)
	case found:
		s = s.Overlay(file)
	}
	c.settings = &s
	return s
}

// Layout returns the icon directories of the workspace.
func (c *Context) Layout() icon.Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layoutLocked()
}

func (c *Context) layoutLocked() icon.Layout {
	s := c.settingsLocked()
	return icon.Layout{
		Root:      c.root,
		IconDir:   s.EffectiveIconDir(),
		CustomSVG: s.CustomSVG,
	}
}

// Index returns the icon index of the workspace, building it on first use
// after creation or invalidation.
func (c *Context) Index() *icon.Index {
	c.mu.Lock()
	if c.index != nil {
		idx := c.index
		c.mu.Unlock()
		return idx
	}
	idx := icon.NewIndex(c.layoutLocked(), icon.WithLogger(c.logger), icon.WithMetrics(c.metrics))
	c.index = idx
	hooks := c.onBuild
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(idx)
	}
	return idx
}

// Invalidate discards the settings, index and decoration images. The next
// Index call rebuilds from disk.
func (c *Context) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = nil
	c.index = nil
	clear(c.images)
	c.logger.Debug("workspace invalidated")
}

func (c *Context) setClientSettings(s config.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = s.Clone()
}

// CachedImage returns the decoration image rendered for name.
func (c *Context) CachedImage(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.images[name]
	return img, ok
}

// StoreImage caches the decoration image of name until invalidation.
func (c *Context) StoreImage(name, image string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[name] = image
}

// OnIndexBuilt registers fn to run after every index build.
func (c *Context) OnIndexBuilt(fn func(*icon.Index)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onBuild = append(c.onBuild, fn)
}

// OnClose registers fn to run when the workspace is removed.
func (c *Context) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, fn)
}

func (c *Context) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	hooks := c.onClose
	c.onClose = nil
	c.index = nil
	clear(c.images)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	c.metrics.ForgetWorkspace(c.root)
	c.logger.Debug("workspace closed")
}
