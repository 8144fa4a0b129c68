package langserver

import (
	"context"

	"github.com/akhenakh/iconify-lsp/decorate"
	"github.com/akhenakh/iconify-lsp/document"
	"github.com/akhenakh/iconify-lsp/protocol"
)

// DidOpen stores the document and makes it the active one.
func (b *Bindings) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	b.docs.Open(params.TextDocument)
	b.docs.SetActive(params.TextDocument.URI)
	b.logger.Debug("document opened",
		"uri", params.TextDocument.URI,
		"language", params.TextDocument.LanguageID,
		"version", params.TextDocument.Version)
	b.refresher.Trigger(params.TextDocument.URI)
	return nil
}

// DidChange updates the document text. Only the active document is
// redecorated.
func (b *Bindings) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc, ok := b.docs.Get(uri)
	if !ok {
		b.logger.Warn("change for unknown document", "uri", uri)
		return nil
	}
	b.docs.Update(uri, params.TextDocument.Version, document.ApplyChanges(doc.Text, params.ContentChanges))
	if b.docs.IsActive(uri) {
		b.refresher.Trigger(uri)
	}
	return nil
}

// DidClose forgets the document.
func (b *Bindings) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	b.docs.Close(params.TextDocument.URI)
	b.refresher.Forget(params.TextDocument.URI)
	return nil
}

// DidChangeActiveEditor tracks the focused editor and redecorates it.
func (b *Bindings) DidChangeActiveEditor(ctx context.Context, params *protocol.ActiveEditorParams) error {
	if params.TextDocument == nil {
		b.docs.SetActive("")
		return nil
	}
	uri := params.TextDocument.URI
	b.docs.SetActive(uri)
	if params.Selection != nil {
		b.docs.SetSelection(uri, *params.Selection)
	}
	b.refresher.Trigger(uri)
	return nil
}

// DidChangeSelection records the selection and redecorates the active
// document, whose hidden ranges depend on it.
func (b *Bindings) DidChangeSelection(ctx context.Context, params *protocol.SelectionParams) error {
	b.docs.SetSelection(params.TextDocument.URI, params.Selection)
	b.refreshActive()
	return nil
}

// decorate runs one decoration pass of uri and publishes the result.
func (b *Bindings) decorate(ctx context.Context, uri protocol.DocumentURI) {
	if b.notifier == nil || !b.docs.IsActive(uri) {
		return
	}
	doc, ok := b.docs.Get(uri)
	if !ok {
		return
	}
	ws, ok := b.workspaces.ForURI(uri)
	if !ok {
		return
	}

	params := protocol.PublishDecorationsParams{URI: uri, Version: doc.Version}
	if ws.Settings().DecorationsEnabled() {
		var err error
		params, err = decorate.Pass(ctx, ws, doc, b.logger)
		if err != nil {
			b.logger.Debug("decoration pass aborted", "uri", uri, "error", err)
			return
		}
	}

	if err := protocol.PublishDecorations(ctx, b.notifier, params); err != nil {
		b.logger.Warn("publish decorations", "uri", uri, "error", err)
		return
	}
	b.metrics.DecorationPass()
	b.logger.Debug("decorations published",
		"uri", uri,
		"decorations", len(params.Decorations),
		"hidden", len(params.Hidden))
}
