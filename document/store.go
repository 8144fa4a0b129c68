// Package document keeps the text of the documents open in the editor.
package document

import (
	"sync"

	"github.com/akhenakh/iconify-lsp/protocol"
)

// Document is a snapshot of an open document.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int
	Text       string
	// Selection is the last selection reported by the editor, if any.
	Selection *protocol.Range
}

// Store holds open documents and tracks the active one.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	docs   map[protocol.DocumentURI]*Document
	active protocol.DocumentURI
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentURI]*Document)}
}

// Open adds a document, replacing any document with the same URI.
func (s *Store) Open(item protocol.TextDocumentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[item.URI] = &Document{
		URI:        item.URI,
		LanguageID: item.LanguageID,
		Version:    item.Version,
		Text:       item.Text,
	}
}

// Update replaces the text of an open document. It reports false when the
// document is not open.
func (s *Store) Update(uri protocol.DocumentURI, version int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return false
	}
	doc.Version = version
	doc.Text = text
	return true
}

// Close forgets a document. Closing the active document clears it.
func (s *Store) Close(uri protocol.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
	if s.active == uri {
		s.active = ""
	}
}

// Get returns a snapshot of an open document.
func (s *Store) Get(uri protocol.DocumentURI) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	if !ok {
		return Document{}, false
	}
	return doc.snapshot(), true
}

// SetSelection records the selection of an open document.
func (s *Store) SetSelection(uri protocol.DocumentURI, sel protocol.Range) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return false
	}
	doc.Selection = &sel
	return true
}

// SetActive marks uri as the document of the focused editor. An empty uri
// means no editor has focus.
func (s *Store) SetActive(uri protocol.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = uri
}

// Active returns the document of the focused editor.
func (s *Store) Active() (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == "" {
		return Document{}, false
	}
	doc, ok := s.docs[s.active]
	if !ok {
		return Document{}, false
	}
	return doc.snapshot(), true
}

// IsActive reports whether uri is the document of the focused editor.
func (s *Store) IsActive(uri protocol.DocumentURI) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uri != "" && s.active == uri
}

func (d *Document) snapshot() Document {
	out := *d
	if d.Selection != nil {
		sel := *d.Selection
		out.Selection = &sel
	}
	return out
}
