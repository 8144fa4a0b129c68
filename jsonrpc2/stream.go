package jsonrpc2

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	headerContentLength = "Content-Length"
	headerSeparator     = "\r\n"

	// maxContentLength bounds a single message body.
	maxContentLength = 64 << 20
)

// Stream reads and writes base-protocol framed messages
// ("Content-Length: N\r\n\r\n<body>") over an io.ReadWriter.
type Stream struct {
	reader *bufio.Reader
	writer io.Writer
	source io.ReadWriter
}

// NewStream creates a new Stream.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{
		reader: bufio.NewReader(rw),
		writer: rw,
		source: rw,
	}
}

// Close closes the underlying source if it implements io.Closer.
func (s *Stream) Close() error {
	if closer, ok := s.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadMessage reads the body of the next framed message.
// A clean end of input before any header byte is reported as io.EOF.
func (s *Stream) ReadMessage() ([]byte, error) {
	// Read headers
	contentLength := -1
	first := true
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if first && line == "" && errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header line: %w", err)
		}
		first = false

		line = strings.TrimRight(line, "\r\n")
		// Empty line indicates end of headers
		if line == "" {
			break
		}

		// Malformed lines and headers other than Content-Length (Content-Type
		// is always utf-8 JSON here) are skipped.
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), headerContentLength) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", headerContentLength, value, err)
		}
		if n <= 0 || n > maxContentLength {
			return nil, fmt.Errorf("invalid %s: %d", headerContentLength, n)
		}
		contentLength = n
	}

	if contentLength == -1 {
		return nil, fmt.Errorf("missing %s header", headerContentLength)
	}

	// Read the JSON content
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("read message body (%d bytes): %w", contentLength, err)
	}
	return body, nil
}

// WriteMessage marshals msg and writes it with its header in one Write call.
func (s *Stream) WriteMessage(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	// Header and body go out in one Write so concurrent writers behind a
	// lock never interleave partial frames.
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %d%s%s", headerContentLength, len(body), headerSeparator, headerSeparator)
	buf.Write(body)

	if _, err := s.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
