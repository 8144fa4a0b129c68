package server

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/akhenakh/iconify-lsp/protocol"
)

// Option configures a Server.
type Option func(*options)

// InitializeHook runs while the server answers the initialize request.
// Returning an error fails the request.
type InitializeHook func(ctx context.Context, params *protocol.InitializeParams) error

type options struct {
	stream          io.ReadWriter
	logger          *slog.Logger
	info            protocol.ServerInfo
	triggerChars    []string
	commands        []string
	fileCreateGlobs []string
	onInitialize    InitializeHook
	exit            func(code int)
}

func defaultOptions() *options {
	return &options{
		stream: ReadWriter{os.Stdin, os.Stdout},
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
		info:   protocol.ServerInfo{Name: "lsp"},
		exit:   os.Exit,
	}
}

// WithStream sets the input/output stream for the server connection.
func WithStream(rw io.ReadWriter) Option {
	return func(o *options) {
		o.stream = rw
	}
}

// WithLogger sets the logger used by the server.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithServerInfo sets the name and version reported by initialize.
func WithServerInfo(name, version string) Option {
	return func(o *options) {
		o.info = protocol.ServerInfo{Name: name, Version: version}
	}
}

// WithCompletionTriggers sets the completion trigger characters.
func WithCompletionTriggers(chars ...string) Option {
	return func(o *options) {
		o.triggerChars = chars
	}
}

// WithCommands lists the commands advertised for workspace/executeCommand.
func WithCommands(commands ...string) Option {
	return func(o *options) {
		o.commands = commands
	}
}

// WithFileCreateGlobs sets the globs of created files the client should
// report through workspace/didCreateFiles.
func WithFileCreateGlobs(globs ...string) Option {
	return func(o *options) {
		o.fileCreateGlobs = globs
	}
}

// WithInitializeHook registers a hook run during initialize.
func WithInitializeHook(h InitializeHook) Option {
	return func(o *options) {
		o.onInitialize = h
	}
}

// WithExitFunc replaces os.Exit for the exit notification.
func WithExitFunc(fn func(code int)) Option {
	return func(o *options) {
		o.exit = fn
	}
}

// ReadWriter combines an io.Reader and io.Writer into an io.ReadWriter.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// Close closes the reader and, when distinct, the writer if they are io.Closers.
func (rw ReadWriter) Close() error {
	var errR, errW error
	cR, okR := rw.Reader.(io.Closer)
	cW, okW := rw.Writer.(io.Closer)

	if okR {
		errR = cR.Close()
	}
	if okW && (!okR || cR != cW) {
		errW = cW.Close()
	}

	if errR != nil {
		return errR
	}
	return errW
}
