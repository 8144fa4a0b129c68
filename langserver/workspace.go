package langserver

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/akhenakh/iconify-lsp/config"
	"github.com/akhenakh/iconify-lsp/jsonrpc2"
	"github.com/akhenakh/iconify-lsp/protocol"
)

// maxRebuilds bounds the workspace indexes rebuilt concurrently by the
// reindex command.
const maxRebuilds = 4

// ReindexResult is the result of the reindex command.
type ReindexResult struct {
	Workspaces int `json:"workspaces"`
	Icons      int `json:"icons"`
}

// DidChangeConfiguration replaces the client settings. Every workspace
// index and decoration cache is discarded. Payloads without settings of
// ours, such as null, leave everything as is.
func (b *Bindings) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	settings, found, err := config.ParseClientSettings(params.Settings)
	if err != nil {
		b.logger.Warn("ignoring configuration change", "error", err)
		return nil
	}
	if !found {
		b.logger.Debug("configuration change without icon settings")
		return nil
	}
	b.workspaces.SetClientSettings(settings)
	b.logger.Info("configuration changed")
	b.refreshActive()
	return nil
}

// DidChangeWorkspaceFolders adds and removes workspace contexts.
func (b *Bindings) DidChangeWorkspaceFolders(ctx context.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	for _, f := range params.Event.Removed {
		b.workspaces.RemoveFolder(f)
	}
	for _, f := range params.Event.Added {
		b.workspaces.AddFolder(f)
	}
	b.refreshActive()
	return nil
}

// DidCreateFiles indexes created icon files.
func (b *Bindings) DidCreateFiles(ctx context.Context, params *protocol.CreateFilesParams) error {
	for _, f := range params.Files {
		b.fileCreated(f.URI)
	}
	return nil
}

// DidChangeWatchedFiles indexes created icon files and reloads the
// settings of workspaces whose config file changed.
func (b *Bindings) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, ev := range params.Changes {
		path := ev.URI.Path()
		if path == "" {
			continue
		}
		if config.IsWorkspaceFile(path) {
			if ws, ok := b.workspaces.ForPath(path); ok {
				ws.Invalidate()
				b.refreshActive()
			}
			continue
		}
		if ev.Type == protocol.FileCreated {
			b.fileCreated(ev.URI)
		}
	}
	return nil
}

func (b *Bindings) fileCreated(uri protocol.DocumentURI) {
	path := uri.Path()
	if path == "" || !(strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".svg")) {
		return
	}
	if ws, ok := b.workspaces.ForPath(path); ok {
		b.addIconFile(ws, path)
	}
}

// ExecuteCommand runs the reindex command.
func (b *Bindings) ExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (*ReindexResult, error) {
	if params.Command != CommandReindex {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "unknown command %q", params.Command)
	}

	b.workspaces.InvalidateAll()
	contexts := b.workspaces.All()
	var icons atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxRebuilds)
	for _, ws := range contexts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			icons.Add(int64(ws.Index().Len()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Indexes not rebuilt here are built lazily on next use.
		return nil, jsonrpc2.Errorf(jsonrpc2.RequestCancelled, "reindex: %v", err)
	}

	result := &ReindexResult{Workspaces: len(contexts), Icons: int(icons.Load())}
	b.logger.Info("reindexed", "workspaces", result.Workspaces, "icons", result.Icons)
	if b.notifier != nil {
		msg := fmt.Sprintf("Indexed %d icons in %d workspace folders.", result.Icons, result.Workspaces)
		if err := protocol.ShowMessage(ctx, b.notifier, protocol.Info, msg); err != nil {
			b.logger.Warn("show message", "error", err)
		}
	}
	b.refreshActive()
	return result, nil
}
