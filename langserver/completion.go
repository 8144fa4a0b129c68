package langserver

import (
	"context"
	"encoding/json"

	"github.com/akhenakh/iconify-lsp/document"
	"github.com/akhenakh/iconify-lsp/icon"
	"github.com/akhenakh/iconify-lsp/protocol"
	"github.com/akhenakh/iconify-lsp/render"
)

// completionData travels in CompletionItem.Data to completionItem/resolve.
type completionData struct {
	Path string `json:"path"`
}

// Completion offers every indexed icon when the text before the cursor
// ends with a partial reference such as "i-" or "i-[mdi/ho".
func (b *Bindings) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	uri := params.TextDocument.URI
	doc, ok := b.docs.Get(uri)
	if !ok {
		return nil, nil
	}
	ws, ok := b.workspaces.ForURI(uri)
	if !ok || !ws.Settings().IsTargetLanguage(doc.LanguageID) {
		return nil, nil
	}

	lines := document.NewLines(doc.Text)
	cursor := lines.Offset(params.Position)
	prefix := document.LinePrefix(doc.Text, params.Position)
	loc := icon.CompletionPrefixPattern.FindStringIndex(prefix)
	if loc == nil {
		return nil, nil
	}
	edit := lines.Range(cursor-(len(prefix)-loc[0]), cursor)

	entries := ws.Index().Entries()
	kind := protocol.Constant
	items := make([]protocol.CompletionItem, 0, len(entries))
	for _, name := range ws.Index().Names() {
		path, ok := entries[name]
		if !ok {
			continue
		}
		data, err := json.Marshal(completionData{Path: path})
		if err != nil {
			return nil, err
		}
		label := "i-[" + name + "]"
		items = append(items, protocol.CompletionItem{
			Label:    label,
			Kind:     &kind,
			Detail:   name,
			TextEdit: &protocol.TextEdit{Range: edit, NewText: label},
			Data:     data,
		})
	}
	b.logger.Debug("completion", "uri", uri, "prefix", prefix[loc[0]:], "items", len(items))
	return &protocol.CompletionList{Items: items}, nil
}

// ResolveCompletionItem adds the icon preview to a completion item. Items
// whose icon cannot be rendered are returned unchanged.
func (b *Bindings) ResolveCompletionItem(ctx context.Context, item *protocol.CompletionItem) (*protocol.CompletionItem, error) {
	if len(item.Data) == 0 {
		return item, nil
	}
	var data completionData
	if err := json.Unmarshal(item.Data, &data); err != nil || data.Path == "" {
		return item, nil
	}

	uri, err := b.rendererFor(data.Path).DataURI(data.Path)
	if err != nil {
		return item, nil
	}
	item.Documentation = &protocol.MarkupContent{
		Kind:  protocol.Markdown,
		Value: render.Markdown(uri),
	}
	return item, nil
}

// rendererFor returns the renderer of the workspace containing path, or a
// renderer following the client settings.
func (b *Bindings) rendererFor(path string) *render.Renderer {
	if ws, ok := b.workspaces.ForPath(path); ok {
		return ws.Renderer()
	}
	return render.New(b.workspaces.ClientSettings(), render.WithLogger(b.logger), render.WithMetrics(b.metrics))
}
