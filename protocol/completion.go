package protocol

import "encoding/json"

// CompletionParams parameters for textDocument/completion request.
type CompletionParams struct {
	TextDocumentPositionParams
	Context *CompletionContext `json:"context,omitempty"`
}

// CompletionContext describes how completion was triggered.
type CompletionContext struct {
	TriggerKind      CompletionTriggerKind `json:"triggerKind"`
	TriggerCharacter string                `json:"triggerCharacter,omitempty"`
}

// CompletionTriggerKind how a completion was triggered.
type CompletionTriggerKind int

const (
	CompletionInvoked                         CompletionTriggerKind = 1
	CompletionTriggerCharacter                CompletionTriggerKind = 2
	CompletionTriggerForIncompleteCompletions CompletionTriggerKind = 3
)

// CompletionList represents a list of completion items.
type CompletionList struct {
	// Further typing should recompute the list.
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// CompletionItem represents a single completion suggestion.
type CompletionItem struct {
	// Label is also the inserted text unless TextEdit is set.
	Label  string              `json:"label"`
	Kind   *CompletionItemKind `json:"kind,omitempty"`
	Detail string              `json:"detail,omitempty"`
	// Documentation is left empty by textDocument/completion and filled
	// by completionItem/resolve.
	Documentation *MarkupContent `json:"documentation,omitempty"`
	FilterText    string         `json:"filterText,omitempty"`
	SortText      string         `json:"sortText,omitempty"`
	// The range of the edit must be single line and contain the
	// completion position.
	TextEdit *TextEdit `json:"textEdit,omitempty"`
	// Data is preserved between textDocument/completion and
	// completionItem/resolve.
	Data json.RawMessage `json:"data,omitempty"`
}

// CompletionItemKind specifies the kind of completion item.
type CompletionItemKind int

// Defined kinds (subset)
const (
	Text     CompletionItemKind = 1
	Value    CompletionItemKind = 12
	File     CompletionItemKind = 17
	Constant CompletionItemKind = 21
)

// CompletionOptions server options for completion requests.
type CompletionOptions struct {
	ResolveProvider   bool     `json:"resolveProvider,omitempty"`
	TriggerCharacters []string `json:"triggerCharacters,omitempty"`
}
