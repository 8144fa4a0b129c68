package protocol

// HoverParams parameters for textDocument/hover request.
type HoverParams struct {
	TextDocumentPositionParams
}

// Hover result for textDocument/hover request.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// HoverOptions defines server capabilities for Hover.
type HoverOptions struct {
	WorkDoneProgressOptions
}
