package jsonrpc2

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rw struct {
	io.Reader
	io.Writer
}

func TestStream_WriteThenRead(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf)

	require.NoError(t, s.WriteMessage(map[string]string{"jsonrpc": "2.0", "method": "initialized"}))
	assert.True(t, strings.HasPrefix(buf.String(), "Content-Length: "))

	body, err := s.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"initialized"}`, string(body))

	_, err = s.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_ReadMessage_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing length", "Content-Type: application/json\r\n\r\n{}"},
		{"bad length", "Content-Length: abc\r\n\r\n{}"},
		{"zero length", "Content-Length: 0\r\n\r\n"},
		{"short body", "Content-Length: 10\r\n\r\n{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(rw{strings.NewReader(tt.input), io.Discard})
			_, err := s.ReadMessage()
			assert.Error(t, err)
		})
	}
}

func TestDecode(t *testing.T) {
	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"textDocument/hover"}`))
	require.NoError(t, err)
	assert.IsType(t, &RequestMessage{}, msg)

	msg, err = Decode([]byte(`{"jsonrpc":"2.0","method":"initialized","params":{}}`))
	require.NoError(t, err)
	assert.IsType(t, &NotificationMessage{}, msg)

	msg, err = Decode([]byte(`{"jsonrpc":"2.0","id":"7","result":null}`))
	require.NoError(t, err)
	assert.IsType(t, &ResponseMessage{}, msg)

	_, err = Decode([]byte(`{"jsonrpc":"2.0"}`))
	var rpcErr *ErrorObject
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, InvalidRequest, rpcErr.Code)

	_, err = Decode([]byte(`not json`))
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ParseError, rpcErr.Code)
}

func TestConn_WriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	c := NewConn(NewStream(&buf))
	require.NoError(t, c.Notify(context.Background(), "window/logMessage", map[string]any{"type": 3, "message": "hi"}))
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Notify(context.Background(), "window/logMessage", nil), io.ErrClosedPipe)
}
