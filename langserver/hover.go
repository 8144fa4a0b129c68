package langserver

import (
	"context"

	"github.com/akhenakh/iconify-lsp/document"
	"github.com/akhenakh/iconify-lsp/icon"
	"github.com/akhenakh/iconify-lsp/protocol"
	"github.com/akhenakh/iconify-lsp/render"
)

// Hover previews the icon referenced under the cursor.
func (b *Bindings) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	doc, ok := b.docs.Get(uri)
	if !ok {
		return nil, nil
	}
	ws, ok := b.workspaces.ForURI(uri)
	if !ok || !ws.Settings().IsTargetLanguage(doc.LanguageID) {
		return nil, nil
	}

	word, rng, ok := document.WordAt(doc.Text, params.Position, icon.HoverWordPattern)
	if !ok {
		return nil, nil
	}
	name, ok := icon.HoverName(word)
	if !ok {
		return nil, nil
	}
	path, ok := ws.Index().Resolve(name)
	if !ok {
		b.logger.Debug("hover on unknown icon", "name", name)
		return nil, nil
	}
	data, err := ws.Renderer().DataURI(path)
	if err != nil {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: render.Markdown(data),
		},
		Range: &rng,
	}, nil
}
