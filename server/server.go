// Package server runs a language server over a JSON-RPC stream: it owns
// the LSP lifecycle (initialize, shutdown, exit), dispatches requests and
// notifications to registered handlers and derives the advertised
// capabilities from what was registered.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akhenakh/iconify-lsp/jsonrpc2"
	"github.com/akhenakh/iconify-lsp/protocol"
)

// Server represents an LSP server.
type Server struct {
	conn     *jsonrpc2.Conn
	opts     *options
	logger   *slog.Logger
	handlers map[string]*typedHandler
	mu       sync.RWMutex

	state        atomic.Int32
	exited       atomic.Bool
	shutdownOnce sync.Once
	pendingReqs  sync.WaitGroup

	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc // request id -> cancel
}

// serverState is the lifecycle state of the server.
type serverState int32

const (
	stateUninitialized serverState = iota
	stateInitializing
	stateRunning
	stateShutdown
)

func (s serverState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateRunning:
		return "running"
	case stateShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// NewServer creates a new LSP server instance, by default over stdin/stdout.
func NewServer(opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s := &Server{
		conn:     jsonrpc2.NewConn(jsonrpc2.NewStream(o.stream)),
		opts:     o,
		logger:   o.logger,
		handlers: make(map[string]*typedHandler),
		inflight: make(map[string]context.CancelFunc),
	}
	s.registerDefaultHandlers()
	return s
}

func (s *Server) registerDefaultHandlers() {
	s.mustRegister(protocol.MethodInitialize, s.handleInitialize)
	s.mustRegister(protocol.MethodInitialized, s.handleInitialized)
	s.mustRegister(protocol.MethodShutdown, s.handleShutdown)
	s.mustRegister(protocol.MethodExit, s.handleExit)
	s.mustRegister(protocol.MethodCancelRequest, s.handleCancel)
	s.mustRegister(protocol.MethodProgress, s.handleProgress)
	s.mustRegister(protocol.MethodSetTrace, s.handleSetTrace)
}

func (s *Server) mustRegister(method string, h any) {
	if err := s.Register(method, h); err != nil {
		panic(err)
	}
}

// Register associates a handler function with an LSP method name.
// See typedHandler for the accepted signatures.
func (s *Server) Register(method string, handlerFunc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handlers[method]; exists {
		return fmt.Errorf("handler already registered for method: %s", method)
	}
	th, err := newTypedHandler(handlerFunc)
	if err != nil {
		return fmt.Errorf("invalid handler for method %s: %w", method, err)
	}
	s.handlers[method] = th
	s.logger.Debug("registered handler",
		"method", method,
		"takes_conn", th.takesConn,
		"param_type", th.paramType)
	return nil
}

// Run reads and dispatches messages until the connection closes, the
// context is cancelled or the exit notification arrives.
// Notifications are handled in arrival order on the read loop; requests
// run concurrently.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Debug("server loop starting")
	defer s.logger.Debug("server loop stopped")

	// Closing the connection unblocks a pending Read when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close() //nolint:errcheck
		case <-done:
		}
	}()

	for {
		msg, err := s.conn.Read(ctx)
		if err != nil {
			// Exit closed the connection itself.
			if s.exited.Load() {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// Determine if the error is fatal or recoverable
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				// EOF after shutdown is a clean close.
				if s.currentState() == stateShutdown {
					return nil
				}
				s.logger.Warn("client closed connection before shutdown")
				return io.ErrUnexpectedEOF
			}
			var rpcErr *jsonrpc2.ErrorObject
			if errors.As(err, &rpcErr) {
				// Malformed JSON inside a well-framed message: skip it.
				s.logger.Warn("dropping malformed message", "error", err)
				continue
			}
			return fmt.Errorf("read message: %w", err)
		}

		switch m := msg.(type) {
		case *jsonrpc2.RequestMessage:
			// Tracked so exit can wait for in-flight requests.
			s.pendingReqs.Add(1)
			go func() {
				defer s.pendingReqs.Done()
				s.handleRequest(ctx, m)
			}()
		case *jsonrpc2.NotificationMessage:
			// Inline: didOpen must be applied before a following didChange.
			s.handleNotification(ctx, m)
			if s.exited.Load() {
				return nil
			}
		case *jsonrpc2.ResponseMessage:
			s.logger.Debug("ignoring response from client", "id", string(m.ID))
		}
	}
}

func (s *Server) currentState() serverState {
	return serverState(s.state.Load())
}

func (s *Server) casState(from, to serverState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

func (s *Server) lookup(method string) (*typedHandler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[method]
	return h, ok
}

func (s *Server) handleRequest(ctx context.Context, req *jsonrpc2.RequestMessage) {
	method := req.Method
	log := s.logger.With("method", method, "id", string(req.ID))
	log.Debug("--> request")

	// State checks
	switch state := s.currentState(); {
	case state == stateShutdown:
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
		return
	case state == stateUninitialized && method != protocol.MethodInitialize:
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server not initialized"))
		return
	case state == stateInitializing && method != protocol.MethodInitialize:
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server is initializing"))
		return
	}

	handler, found := s.lookup(method)
	if !found {
		s.sendResponse(ctx, req.ID, nil, jsonrpc2.Errorf(jsonrpc2.MethodNotFound, "method not found: %s", method))
		return
	}

	// Register the cancel func under the raw id so $/cancelRequest can find it.
	// The entry is removed once the handler returns.
	reqCtx, cancel := context.WithCancel(ctx)
	key := string(req.ID)
	s.inflightMu.Lock()
	s.inflight[key] = cancel
	s.inflightMu.Unlock()
	defer func() {
		s.inflightMu.Lock()
		delete(s.inflight, key)
		s.inflightMu.Unlock()
		cancel()
	}()

	// Invoke the handler
	result, err := handler.invoke(reqCtx, s.conn, req.Params)

	var errResp *jsonrpc2.ErrorObject
	switch {
	case err != nil:
		// Keep jsonrpc2 errors as is, wrap anything else as an internal error.
		if !errors.As(err, &errResp) {
			errResp = jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
		}
		if errResp.Code == jsonrpc2.InternalError {
			log.Error("handler failed", "error", err)
		}
	// Cancelled by the client, not by server shutdown.
	case reqCtx.Err() != nil && ctx.Err() == nil:
		errResp = jsonrpc2.NewError(jsonrpc2.RequestCancelled, "request cancelled")
		result = nil
	}
	s.sendResponse(ctx, req.ID, result, errResp)
}

func (s *Server) handleNotification(ctx context.Context, n *jsonrpc2.NotificationMessage) {
	method := n.Method
	s.logger.Debug("--> notification", "method", method)

	// Allow 'exit' even during shutdown
	state := s.currentState()
	if state == stateShutdown && method != protocol.MethodExit {
		s.logger.Debug("ignoring notification during shutdown", "method", method)
		return
	}
	// Allow '$/cancelRequest', '$/progress' and 'exit' before 'initialize'
	early := method == protocol.MethodCancelRequest || method == protocol.MethodProgress ||
		method == protocol.MethodExit
	if state == stateUninitialized && !early {
		s.logger.Debug("ignoring notification before initialize", "method", method)
		return
	}

	handler, found := s.lookup(method)
	if !found {
		// Unknown notifications are ignored.
		s.logger.Debug("no handler for notification", "method", method)
		return
	}
	if _, err := handler.invoke(ctx, s.conn, n.Params); err != nil {
		s.logger.Warn("notification handler failed", "method", method, "error", err)
	}
}

func (s *Server) sendResponse(ctx context.Context, id json.RawMessage, result any, respErr *jsonrpc2.ErrorObject) {
	// A null id cannot be answered.
	if len(id) == 0 || string(id) == "null" {
		return
	}

	response := &jsonrpc2.ResponseMessage{
		JSONRPC: jsonrpc2.Version,
		ID:      id,
	}
	switch {
	case respErr != nil:
		response.Error = respErr
	case result != nil:
		raw, err := json.Marshal(result)
		if err != nil {
			s.logger.Error("marshal result", "id", string(id), "error", err)
			response.Error = jsonrpc2.Errorf(jsonrpc2.InternalError, "failed to marshal result: %v", err)
		} else {
			response.Result = raw
		}
	default:
		// LSP expects an explicit null result.
		response.Result = json.RawMessage("null")
	}

	if response.Error != nil {
		s.logger.Debug("<-- response", "id", string(id), "code", response.Error.Code)
	} else {
		s.logger.Debug("<-- response", "id", string(id))
	}
	// The server context may already be done during shutdown; the
	// response must still go out.
	if err := s.conn.Write(context.WithoutCancel(ctx), response); err != nil {
		s.logger.Warn("write response", "id", string(id), "error", err)
	}
}

// --- Standard Handlers ---

func (s *Server) handleInitialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if !s.casState(stateUninitialized, stateInitializing) {
		return nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server already initialized or is shutting down")
	}
	if params.ClientInfo != nil {
		s.logger.Info("client connected", "client", params.ClientInfo.Name, "version", params.ClientInfo.Version)
	}

	if hook := s.opts.onInitialize; hook != nil {
		if err := hook(ctx, params); err != nil {
			// Roll back so the client may retry initialize.
			s.casState(stateInitializing, stateUninitialized)
			return nil, fmt.Errorf("initialize: %w", err)
		}
	}

	info := s.opts.info
	return &protocol.InitializeResult{
		Capabilities: s.determineServerCapabilities(),
		ServerInfo:   &info,
	}, nil
}

// determineServerCapabilities derives capabilities from registered handlers.
func (s *Server) determineServerCapabilities() protocol.ServerCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()

	has := func(method string) bool {
		_, ok := s.handlers[method]
		return ok
	}

	caps := protocol.ServerCapabilities{}

	// Text document sync

	hasOpen, hasChange, hasClose := has(protocol.MethodTextDocumentDidOpen),
		has(protocol.MethodTextDocumentDidChange), has(protocol.MethodTextDocumentDidClose)
	if hasOpen || hasChange || hasClose {
		caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
			OpenClose: hasOpen || hasClose,
			Change:    protocol.SyncNone,
		}
		if hasChange {
			caps.TextDocumentSync.Change = protocol.SyncFull
		}
	}

	// Hover
	if has(protocol.MethodTextDocumentHover) {
		caps.HoverProvider = &protocol.HoverOptions{}
	}

	// Completion
	if has(protocol.MethodTextDocumentCompletion) {
		caps.CompletionProvider = &protocol.CompletionOptions{
			ResolveProvider:   has(protocol.MethodCompletionItemResolve),
			TriggerCharacters: s.opts.triggerChars,
		}
	}

	// Commands are only advertised when some were configured.
	if has(protocol.MethodWorkspaceExecuteCommand) && len(s.opts.commands) > 0 {
		caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
			Commands: s.opts.commands,
		}
	}

	// Workspace folders and file operations
	var ws protocol.WorkspaceServerCapabilities
	if has(protocol.MethodWorkspaceDidChangeFolders) {
		ws.WorkspaceFolders = &protocol.WorkspaceFoldersServerCapabilities{
			Supported:           true,
			ChangeNotifications: true,
		}
	}
	if has(protocol.MethodWorkspaceDidCreateFiles) && len(s.opts.fileCreateGlobs) > 0 {
		filters := make([]protocol.FileOperationFilter, 0, len(s.opts.fileCreateGlobs))
		for _, g := range s.opts.fileCreateGlobs {
			filters = append(filters, protocol.FileOperationFilter{
				Scheme:  "file",
				Pattern: protocol.FileOperationPattern{Glob: g},
			})
		}
		ws.FileOperations = &protocol.FileOperationOptions{
			DidCreate: &protocol.FileOperationRegistrationOptions{Filters: filters},
		}
	}
	if ws.WorkspaceFolders != nil || ws.FileOperations != nil {
		caps.Workspace = &ws
	}

	return caps
}

func (s *Server) handleInitialized(ctx context.Context, params *protocol.InitializedParams) error {
	if s.casState(stateInitializing, stateRunning) {
		s.logger.Debug("server running")
	} else {
		s.logger.Warn("unexpected initialized notification", "state", s.currentState())
	}
	return nil
}

func (s *Server) handleShutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		// Shutdown is accepted from any state but only transitions once.
		for _, from := range []serverState{stateRunning, stateInitializing, stateUninitialized} {
			if s.casState(from, stateShutdown) {
				s.logger.Info("shutting down")
				return
			}
		}
	})
	return nil
}

func (s *Server) handleExit(ctx context.Context) {
	// Exit code 0 only if shutdown was requested first.
	code := 1
	if s.currentState() == stateShutdown {
		code = 0
	}

	// Give in-flight requests a chance to write their responses, but do
	// not hang the exit on a stuck handler.
	waitCh := make(chan struct{})
	go func() {
		s.pendingReqs.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(2 * time.Second):
		s.logger.Warn("timed out waiting for pending requests before exit")
	}

	// Mark exited before closing so Run treats the read error as clean.
	s.exited.Store(true)
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("close connection", "error", err)
	}
	s.logger.Info("exiting", "code", code)
	s.opts.exit(code)
}

func (s *Server) handleCancel(ctx context.Context, params *protocol.CancelParams) {
	if params == nil {
		return
	}
	key := string(params.ID)
	s.inflightMu.Lock()
	cancel, ok := s.inflight[key]
	s.inflightMu.Unlock()
	// Unknown or already finished ids are ignored.
	if ok {
		s.logger.Debug("cancelling request", "id", key)
		cancel()
	}
}

func (s *Server) handleProgress(ctx context.Context, params *protocol.ProgressParams) {
	if params == nil {
		return
	}
	s.logger.Debug("progress", "token", string(params.Token), "value", string(params.Value))
}

func (s *Server) handleSetTrace(ctx context.Context, params *protocol.SetTraceParams) {
	if params == nil {
		return
	}
	s.logger.Debug("trace level changed", "value", params.Value)
}

// Notify sends a notification to the client. It fails unless the server
// is running.
func (s *Server) Notify(ctx context.Context, method string, params any) error {
	if state := s.currentState(); state != stateRunning {
		return fmt.Errorf("cannot send notification %s while server is %s", method, state)
	}
	if err := s.conn.Notify(ctx, method, params); err != nil {
		return fmt.Errorf("notify %s: %w", method, err)
	}
	s.logger.Debug("<-- notification", "method", method)
	return nil
}
