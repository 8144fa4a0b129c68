package workspace

import (
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/akhenakh/iconify-lsp/config"
	"github.com/akhenakh/iconify-lsp/metrics"
	"github.com/akhenakh/iconify-lsp/protocol"
)

// Registry holds the contexts of the open workspace folders, keyed by
// folder name. It is safe for concurrent use.
type Registry struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	onAdd   []func(*Context)

	mu       sync.RWMutex
	client   config.Settings
	contexts map[string]*Context
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger of the registry and its contexts.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithMetrics passes m to the indexes and renderers of every context.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithAddHook runs fn for every context added to the registry.
func WithAddHook(fn func(*Context)) Option {
	return func(r *Registry) {
		r.onAdd = append(r.onAdd, fn)
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:   slog.Default(),
		contexts: make(map[string]*Context),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add creates the context of a workspace folder. A folder with the same
// name is removed first.
func (r *Registry) Add(name, root string) *Context {
	root = filepath.Clean(root)

	r.mu.Lock()
	old := r.contexts[name]
	c := newContext(name, root, r.client, r.logger, r.metrics)
	r.contexts[name] = c
	r.mu.Unlock()

	if old != nil {
		old.close()
	}
	for _, fn := range r.onAdd {
		fn(c)
	}
	r.logger.Debug("workspace added", "workspace", name, "root", root)
	return c
}

// AddFolder adds a workspace folder sent by the client. Folders without a
// file URI are ignored.
func (r *Registry) AddFolder(f protocol.WorkspaceFolder) (*Context, bool) {
	root := f.URI.Path()
	if root == "" {
		r.logger.Debug("ignoring non file workspace folder", "uri", f.URI)
		return nil, false
	}
	name := f.Name
	if name == "" {
		name = filepath.Base(root)
	}
	return r.Add(name, root), true
}

// Remove tears down the context of a workspace folder.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	c, ok := r.contexts[name]
	delete(r.contexts, name)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.close()
	r.logger.Debug("workspace removed", "workspace", name)
	return true
}

// RemoveFolder removes the context of a folder sent by the client, matched
// by name, else by root.
func (r *Registry) RemoveFolder(f protocol.WorkspaceFolder) bool {
	if f.Name != "" && r.Remove(f.Name) {
		return true
	}
	root := f.URI.Path()
	if root == "" {
		return false
	}
	root = filepath.Clean(root)
	for _, c := range r.All() {
		if c.Root() == root {
			return r.Remove(c.Name())
		}
	}
	return false
}

// Get returns the context of a workspace folder by name.
func (r *Registry) Get(name string) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contexts[name]
	return c, ok
}

// ForURI returns the context of the innermost workspace folder containing
// the document at uri.
func (r *Registry) ForURI(uri protocol.DocumentURI) (*Context, bool) {
	p := uri.Path()
	if p == "" {
		return nil, false
	}
	return r.ForPath(p)
}

// ForPath returns the context of the innermost workspace folder containing
// path.
func (r *Registry) ForPath(path string) (*Context, bool) {
	path = filepath.Clean(path)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *Context
	for _, c := range r.contexts {
		if !within(c.root, path) {
			continue
		}
		if best == nil || len(c.root) > len(best.root) {
			best = c
		}
	}
	return best, best != nil
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}

// All returns the contexts ordered by name.
func (r *Registry) All() []*Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Sorted(maps.Keys(r.contexts))
	out := make([]*Context, 0, len(names))
	for _, name := range names {
		out = append(out, r.contexts[name])
	}
	return out
}

// InvalidateAll discards the index and decoration cache of every context.
func (r *Registry) InvalidateAll() {
	for _, c := range r.All() {
		c.Invalidate()
	}
}

// ClientSettings returns the settings last sent by the client.
func (r *Registry) ClientSettings() config.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client.Clone()
}

// SetClientSettings replaces the client settings and invalidates every
// context.
func (r *Registry) SetClientSettings(s config.Settings) {
	r.mu.Lock()
	r.client = s.Clone()
	contexts := slices.Collect(maps.Values(r.contexts))
	r.mu.Unlock()

	for _, c := range contexts {
		c.setClientSettings(s)
		c.Invalidate()
	}
}

// Close tears down every context.
func (r *Registry) Close() {
	r.mu.Lock()
	contexts := r.contexts
	r.contexts = make(map[string]*Context)
	r.mu.Unlock()

	for _, c := range contexts {
		c.close()
	}
}
