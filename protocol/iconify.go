package protocol

// ActiveEditorParams parameters for iconify/didChangeActiveEditor.
// A nil TextDocument means no editor has focus.
type ActiveEditorParams struct {
	TextDocument *TextDocumentIdentifier `json:"textDocument,omitempty"`
	Selection    *Range                  `json:"selection,omitempty"`
}

// SelectionParams parameters for iconify/didChangeSelection.
type SelectionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Selection    Range                  `json:"selection"`
}

// PublishDecorationsParams parameters for iconify/publishDecorations.
type PublishDecorationsParams struct {
	URI     DocumentURI `json:"uri"`
	Version int         `json:"version"`
	// Decorations draws Image before each Range.
	Decorations []Decoration `json:"decorations"`
	// Hidden ranges have their text visually hidden by the client.
	Hidden []Range `json:"hidden"`
}

// Decoration is an inline image placed before the icon name of a reference.
type Decoration struct {
	Name  string `json:"name"`
	Range Range  `json:"range"`
	Image string `json:"image"` // data: URI
}
