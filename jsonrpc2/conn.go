package jsonrpc2

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Conn decodes incoming messages from a Stream and serializes writes to it.
type Conn struct {
	stream *Stream
	mu     sync.Mutex // guards writes and closed
	closed bool
}

// NewConn creates a new connection over stream.
func NewConn(stream *Stream) *Conn {
	return &Conn{stream: stream}
}

// Read blocks until the next message arrives and returns it as a
// *RequestMessage, *NotificationMessage or *ResponseMessage.
func (c *Conn) Read(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := c.stream.ReadMessage()
	if err != nil {
		// A broken stream cannot recover; fail later writes fast.
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		return nil, err
	}
	return Decode(data)
}

// Decode classifies a raw message by its "method" and "id" members.
func Decode(data []byte) (any, error) {
	var base struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	// Peek at the discriminating members before decoding the full message.
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, Errorf(ParseError, "parse message: %v", err)
	}

	// method+id is a request, method alone a notification, id alone a response.
	switch {
	case base.Method != "" && !isNullID(base.ID):
		var req RequestMessage
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, Errorf(ParseError, "parse request: %v", err)
		}
		return &req, nil
	case base.Method != "":
		var n NotificationMessage
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, Errorf(ParseError, "parse notification: %v", err)
		}
		return &n, nil
	case !isNullID(base.ID):
		var resp ResponseMessage
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, Errorf(ParseError, "parse response: %v", err)
		}
		return &resp, nil
	}
	return nil, NewError(InvalidRequest, "message is not a request, notification or response")
}

// Write sends msg. It is safe for concurrent use.
func (c *Conn) Write(ctx context.Context, msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return io.ErrClosedPipe
	}
	// Holding mu for the whole write keeps frames from interleaving.
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.stream.WriteMessage(msg)
}

// Notify marshals params and sends a notification.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	n, err := NewNotification(method, params)
	if err != nil {
		return err
	}
	return c.Write(ctx, n)
}

// Close closes the underlying stream once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.stream.Close()
}
