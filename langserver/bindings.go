// Package langserver binds icon completion, hover and inline decorations to
// the language server.
package langserver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/akhenakh/iconify-lsp/config"
	"github.com/akhenakh/iconify-lsp/decorate"
	"github.com/akhenakh/iconify-lsp/document"
	"github.com/akhenakh/iconify-lsp/icon"
	"github.com/akhenakh/iconify-lsp/metrics"
	"github.com/akhenakh/iconify-lsp/protocol"
	"github.com/akhenakh/iconify-lsp/watch"
	"github.com/akhenakh/iconify-lsp/workspace"
)

// CommandReindex rebuilds the icon index of every workspace folder.
const CommandReindex = "iconify.reindex"

// Server is the part of server.Server the bindings use.
type Server interface {
	protocol.Notifier
	Register(method string, handler any) error
}

// Bindings implements the language features. Create it with New and attach
// it to a server with Bind.
type Bindings struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	watch    bool

	notifier   protocol.Notifier
	docs       *document.Store
	workspaces *workspace.Registry
	refresher  *decorate.Refresher

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures Bindings.
type Option func(*Bindings)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bindings) {
		b.logger = l
	}
}

// WithMetrics records index, render and decoration metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bindings) {
		b.metrics = m
	}
}

// WithDecorationInterval sets the minimum time between two decoration
// passes of a document.
func WithDecorationInterval(d time.Duration) Option {
	return func(b *Bindings) {
		b.interval = d
	}
}

// WithFileWatcher enables watching the icon directories of each workspace
// for created files.
func WithFileWatcher(enabled bool) Option {
	return func(b *Bindings) {
		b.watch = enabled
	}
}

// New returns Bindings with no workspace folders.
func New(opts ...Option) *Bindings {
	b := &Bindings{
		logger:   slog.Default(),
		interval: decorate.DefaultInterval,
		docs:     document.NewStore(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	regOpts := []workspace.Option{
		workspace.WithLogger(b.logger),
		workspace.WithMetrics(b.metrics),
	}
	if b.watch {
		regOpts = append(regOpts, workspace.WithAddHook(b.attachWatcher))
	}
	b.workspaces = workspace.NewRegistry(regOpts...)
	b.refresher = decorate.NewRefresher(b.interval, b.decorate)
	return b
}

// Workspaces returns the workspace registry.
func (b *Bindings) Workspaces() *workspace.Registry {
	return b.workspaces
}

// Bind registers the handlers on srv and sends notifications through it.
func (b *Bindings) Bind(srv Server) error {
	b.notifier = srv
	handlers := map[string]any{
		protocol.MethodTextDocumentDidOpen:             b.DidOpen,
		protocol.MethodTextDocumentDidChange:           b.DidChange,
		protocol.MethodTextDocumentDidClose:            b.DidClose,
		protocol.MethodTextDocumentCompletion:          b.Completion,
		protocol.MethodCompletionItemResolve:           b.ResolveCompletionItem,
		protocol.MethodTextDocumentHover:               b.Hover,
		protocol.MethodWorkspaceDidChangeConfiguration: b.DidChangeConfiguration,
		protocol.MethodWorkspaceDidChangeFolders:       b.DidChangeWorkspaceFolders,
		protocol.MethodWorkspaceDidCreateFiles:         b.DidCreateFiles,
		protocol.MethodWorkspaceDidChangeWatchedFiles:  b.DidChangeWatchedFiles,
		protocol.MethodWorkspaceExecuteCommand:         b.ExecuteCommand,
		protocol.MethodIconifyDidChangeActiveEditor:    b.DidChangeActiveEditor,
		protocol.MethodIconifyDidChangeSelection:       b.DidChangeSelection,
	}
	for method, h := range handlers {
		if err := srv.Register(method, h); err != nil {
			return fmt.Errorf("register %s: %w", method, err)
		}
	}
	return nil
}

// Initialize reads the client settings and workspace folders of the
// initialize request.
func (b *Bindings) Initialize(ctx context.Context, params *protocol.InitializeParams) error {
	settings, found, err := config.ParseClientSettings(params.InitializationOptions)
	switch {
	case err != nil:
		b.logger.Warn("ignoring initialization options", "error", err)
	case found:
		b.workspaces.SetClientSettings(settings)
	}

	folders := params.WorkspaceFolders
	if len(folders) == 0 && params.RootURI != nil {
		root := params.RootURI.Path()
		folders = []protocol.WorkspaceFolder{{URI: *params.RootURI, Name: filepath.Base(root)}}
	}
	for _, f := range folders {
		b.workspaces.AddFolder(f)
	}
	b.logger.Info("initialized", "workspaces", len(b.workspaces.All()))
	return nil
}

// Close stops decoration passes and file watchers.
func (b *Bindings) Close() {
	b.refresher.Close()
	b.workspaces.Close()
	b.cancel()
}

// attachWatcher watches the icon directories of c, following its layout
// each time its index is rebuilt.
func (b *Bindings) attachWatcher(c *workspace.Context) {
	logger := b.logger.With("workspace", c.Name())
	w, err := watch.New(watch.Handlers{
		OnCreate: func(path string) {
			b.addIconFile(c, path)
		},
		OnConfigChange: func() {
			c.Invalidate()
			b.refreshActive()
		},
	}, logger)
	if err != nil {
		logger.Warn("file watcher unavailable", "error", err)
		return
	}
	c.OnIndexBuilt(func(idx *icon.Index) { w.Reset(idx.Layout()) })
	c.OnClose(func() { _ = w.Close() })
	w.Start(b.ctx)
}

// addIconFile indexes a created file of c and redraws the active document.
func (b *Bindings) addIconFile(c *workspace.Context, path string) {
	if name, ok := c.Index().AddFile(path); ok {
		b.logger.Debug("indexed created icon", "workspace", c.Name(), "name", name)
		b.refreshActive()
	}
}

func (b *Bindings) refreshActive() {
	if doc, ok := b.docs.Active(); ok {
		b.refresher.Trigger(doc.URI)
	}
}
