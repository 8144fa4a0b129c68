// Package decorate computes the inline icon decorations of a document and
// paces how often they are recomputed.
package decorate

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/akhenakh/iconify-lsp/document"
	"github.com/akhenakh/iconify-lsp/icon"
	"github.com/akhenakh/iconify-lsp/protocol"
	"github.com/akhenakh/iconify-lsp/render"
)

// maxRenders bounds the icons rendered concurrently by one pass.
const maxRenders = 8

// Match is an icon reference found in a text. Offsets are in bytes.
type Match struct {
	Name string
	// Start and End delimit the whole reference, "i-[" to "]".
	Start, End int
	// NameStart and NameEnd delimit the icon name inside the brackets.
	NameStart, NameEnd int
}

// Scan returns every icon reference of text in order.
func Scan(text string) []Match {
	locs := icon.TokenPattern.FindAllStringSubmatchIndex(text, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			Name:      text[loc[2]:loc[3]],
			Start:     loc[0],
			End:       loc[1],
			NameStart: loc[2],
			NameEnd:   loc[3],
		})
	}
	return matches
}

// Workspace is what a pass needs from the workspace of a document.
type Workspace interface {
	Index() *icon.Index
	Renderer() *render.Renderer
	CachedImage(name string) (string, bool)
	StoreImage(name, image string)
}

// Pass computes the decorations of doc. Each distinct icon name is
// resolved and rendered once; names that do not resolve or render are
// left undecorated. The name of every decorated reference is listed as
// hidden unless the selection lies within the reference.
func Pass(ctx context.Context, ws Workspace, doc document.Document, logger *slog.Logger) (protocol.PublishDecorationsParams, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matches := Scan(doc.Text)

	var (
		mu     sync.Mutex
		images = make(map[string]string)
		seen   = make(map[string]bool)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxRenders)
	for _, m := range matches {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		name := m.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, ok := Image(ws, name, logger)
			if !ok {
				return nil
			}
			mu.Lock()
			images[name] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return protocol.PublishDecorationsParams{}, err
	}

	lines := document.NewLines(doc.Text)
	params := protocol.PublishDecorationsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Decorations: []protocol.Decoration{},
		Hidden:      []protocol.Range{},
	}
	for _, m := range matches {
		img, ok := images[m.Name]
		if !ok {
			continue
		}
		nameRange := lines.Range(m.NameStart, m.NameEnd)
		params.Decorations = append(params.Decorations, protocol.Decoration{
			Name:  m.Name,
			Range: nameRange,
			Image: img,
		})
		if doc.Selection == nil || !lines.Range(m.Start, m.End).Contains(*doc.Selection) {
			params.Hidden = append(params.Hidden, nameRange)
		}
	}
	return params, nil
}

// Image returns the decoration image of name, rendering it on the first
// request after the workspace cache was cleared.
func Image(ws Workspace, name string, logger *slog.Logger) (string, bool) {
	if img, ok := ws.CachedImage(name); ok {
		return img, true
	}
	path, ok := ws.Index().Resolve(name)
	if !ok {
		logger.Debug("icon not found", "name", name)
		return "", false
	}
	uri, err := ws.Renderer().DataURI(path)
	if err != nil {
		logger.Debug("icon not rendered", "name", name, "path", path, "error", err)
		return "", false
	}
	img := render.DecorationImage(uri)
	ws.StoreImage(name, img)
	return img, true
}
