package protocol

// LSP method names handled or sent by the server.
const (
	// Text Document Synchronization
	MethodTextDocumentDidOpen   = "textDocument/didOpen"
	MethodTextDocumentDidChange = "textDocument/didChange"
	MethodTextDocumentDidClose  = "textDocument/didClose"

	// Language Features
	MethodTextDocumentHover      = "textDocument/hover"
	MethodTextDocumentCompletion = "textDocument/completion"
	MethodCompletionItemResolve  = "completionItem/resolve"

	// Workspace Features
	MethodWorkspaceExecuteCommand         = "workspace/executeCommand"
	MethodWorkspaceDidChangeConfiguration = "workspace/didChangeConfiguration"
	MethodWorkspaceDidChangeFolders       = "workspace/didChangeWorkspaceFolders"
	MethodWorkspaceDidCreateFiles         = "workspace/didCreateFiles"
	MethodWorkspaceDidChangeWatchedFiles  = "workspace/didChangeWatchedFiles"

	// Window Features
	MethodWindowShowMessage = "window/showMessage"

	// General Lifecycle
	MethodInitialize    = "initialize"
	MethodInitialized   = "initialized"
	MethodShutdown      = "shutdown"
	MethodExit          = "exit"
	MethodCancelRequest = "$/cancelRequest"
	MethodProgress      = "$/progress"
	MethodSetTrace      = "$/setTrace"
)

// Extension methods exchanged with clients that render inline icons.
const (
	// Client -> server: the focused editor changed.
	MethodIconifyDidChangeActiveEditor = "iconify/didChangeActiveEditor"
	// Client -> server: the selection of the focused editor changed.
	MethodIconifyDidChangeSelection = "iconify/didChangeSelection"
	// Server -> client: image decorations and hidden ranges for a document.
	MethodIconifyPublishDecorations = "iconify/publishDecorations"
)
