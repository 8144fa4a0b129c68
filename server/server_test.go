package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhenakh/iconify-lsp/jsonrpc2"
	"github.com/akhenakh/iconify-lsp/protocol"
)

type testClient struct {
	t      *testing.T
	stream *jsonrpc2.Stream
	nextID int
}

func (c *testClient) call(method string, params any) *jsonrpc2.ResponseMessage {
	c.t.Helper()
	c.nextID++
	req := &jsonrpc2.RequestMessage{
		JSONRPC: jsonrpc2.Version,
		ID:      json.RawMessage(strconv.Itoa(c.nextID)),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(c.t, err)
		req.Params = raw
	}
	require.NoError(c.t, c.stream.WriteMessage(req))

	data, err := c.stream.ReadMessage()
	require.NoError(c.t, err)
	msg, err := jsonrpc2.Decode(data)
	require.NoError(c.t, err)
	resp, ok := msg.(*jsonrpc2.ResponseMessage)
	require.True(c.t, ok, "expected response, got %T", msg)
	assert.Equal(c.t, strconv.Itoa(c.nextID), string(resp.ID))
	return resp
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	n, err := jsonrpc2.NewNotification(method, params)
	require.NoError(c.t, err)
	require.NoError(c.t, c.stream.WriteMessage(n))
}

func startServer(t *testing.T, opts ...Option) (*Server, *testClient, chan int, <-chan error) {
	t.Helper()
	clientToServerR, clientToServerW := io.Pipe()
	serverToClientR, serverToClientW := io.Pipe()

	exitCodes := make(chan int, 1)
	base := []Option{
		WithStream(ReadWriter{clientToServerR, serverToClientW}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithExitFunc(func(code int) { exitCodes <- code }),
	}
	srv := NewServer(append(base, opts...)...)

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	t.Cleanup(func() {
		clientToServerW.Close()
		serverToClientR.Close()
	})

	client := &testClient{t: t, stream: jsonrpc2.NewStream(ReadWriter{serverToClientR, clientToServerW})}
	return srv, client, exitCodes, done
}

func TestServer_RejectsRequestsBeforeInitialize(t *testing.T) {
	_, client, _, _ := startServer(t)

	resp := client.call(protocol.MethodTextDocumentHover, map[string]any{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc2.ServerNotInitialized, resp.Error.Code)
}

func TestServer_Lifecycle(t *testing.T) {
	var hooked *protocol.InitializeParams
	srv, client, exitCodes, done := startServer(t,
		WithServerInfo("iconify-lsp", "test"),
		WithCompletionTriggers("-", "["),
		WithInitializeHook(func(ctx context.Context, p *protocol.InitializeParams) error {
			hooked = p
			return nil
		}),
	)
	require.NoError(t, srv.Register(protocol.MethodTextDocumentCompletion,
		func(ctx context.Context, p *protocol.CompletionParams) (*protocol.CompletionList, error) {
			return &protocol.CompletionList{Items: []protocol.CompletionItem{{Label: "x"}}}, nil
		}))
	require.NoError(t, srv.Register(protocol.MethodCompletionItemResolve,
		func(ctx context.Context, item *protocol.CompletionItem) (*protocol.CompletionItem, error) {
			return item, nil
		}))

	root := protocol.DocumentURI("file:///ws")
	resp := client.call(protocol.MethodInitialize, protocol.InitializeParams{RootURI: &root})
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.NotNil(t, result.Capabilities.CompletionProvider)
	assert.True(t, result.Capabilities.CompletionProvider.ResolveProvider)
	assert.Equal(t, []string{"-", "["}, result.Capabilities.CompletionProvider.TriggerCharacters)
	assert.Nil(t, result.Capabilities.HoverProvider)
	assert.Equal(t, "iconify-lsp", result.ServerInfo.Name)
	require.NotNil(t, hooked)
	assert.Equal(t, root, *hooked.RootURI)

	client.notify(protocol.MethodInitialized, struct{}{})

	resp = client.call(protocol.MethodTextDocumentCompletion, protocol.CompletionParams{})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"isIncomplete":false,"items":[{"label":"x"}]}`, string(resp.Result))

	resp = client.call("textDocument/unknown", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc2.MethodNotFound, resp.Error.Code)

	resp = client.call(protocol.MethodShutdown, nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, "null", string(resp.Result))

	resp = client.call(protocol.MethodTextDocumentCompletion, protocol.CompletionParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc2.InvalidRequest, resp.Error.Code)

	client.notify(protocol.MethodExit, nil)
	select {
	case code := <-exitCodes:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("exit not called")
	}
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestServer_HandlerErrorBecomesInternalError(t *testing.T) {
	srv, client, _, _ := startServer(t)
	require.NoError(t, srv.Register(protocol.MethodTextDocumentHover,
		func(ctx context.Context, p *protocol.HoverParams) (*protocol.Hover, error) {
			return nil, assert.AnError
		}))

	require.Nil(t, client.call(protocol.MethodInitialize, protocol.InitializeParams{}).Error)
	client.notify(protocol.MethodInitialized, struct{}{})

	resp := client.call(protocol.MethodTextDocumentHover, protocol.HoverParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc2.InternalError, resp.Error.Code)
}

func TestRegister_RejectsBadSignatures(t *testing.T) {
	srv := NewServer(WithStream(ReadWriter{}), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	assert.Error(t, srv.Register("a", "not a func"))
	assert.Error(t, srv.Register("b", func() {}))
	assert.Error(t, srv.Register("c", func(ctx context.Context, a, b *protocol.HoverParams) {}))
	assert.Error(t, srv.Register("d", func(ctx context.Context) (int, int) { return 0, 0 }))
	assert.Error(t, srv.Register(protocol.MethodInitialize, func(ctx context.Context) {}))
	assert.NoError(t, srv.Register("e", func(ctx context.Context, conn *jsonrpc2.Conn, p *protocol.HoverParams) error { return nil }))
}
