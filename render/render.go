// Package render turns icon files into data URIs that editors can display
// in markdown and inline decorations.
package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/akhenakh/iconify-lsp/metrics"
)

// ErrInvalidIcon is wrapped by errors about malformed icon files.
var ErrInvalidIcon = errors.New("invalid icon")

const (
	dataURIPrefix = "data:image/svg+xml,"

	darkColor = "ivory"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ThemeSource reports the color theme kind of the editor.
type ThemeSource interface {
	Dark() bool
}

// ThemeFunc adapts a function to a ThemeSource.
type ThemeFunc func() bool

// Dark implements ThemeSource.
func (f ThemeFunc) Dark() bool { return f() }

// Renderer renders icon files. It keeps no state between calls and may be
// shared between goroutines.
type Renderer struct {
	theme   ThemeSource
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger of the renderer.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithMetrics records render outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// New returns a Renderer adapting output to theme. A nil theme is light.
func New(theme ThemeSource, opts ...Option) *Renderer {
	r := &Renderer{
		theme:  theme,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DataURI reads the icon file at path and returns it as an SVG data URI.
// Files ending in .json are Iconify icons, anything else is SVG markup.
// The file is read on every call.
func (r *Renderer) DataURI(path string) (string, error) {
	uri, err := r.dataURI(path)
	r.metrics.Render(err)
	if err != nil {
		r.logger.Debug("render failed", "path", path, "error", err)
		return "", err
	}
	if r.theme != nil && r.theme.Dark() {
		uri = ApplyDarkTheme(uri)
	}
	return uri, nil
}

func (r *Renderer) dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read icon: %w", err)
	}

	var svg string
	if strings.HasSuffix(path, ".json") {
		svg, err = iconifySVG(data)
	} else {
		svg, err = normalizeSVG(data)
	}
	if err != nil {
		return "", fmt.Errorf("render %s: %w", path, err)
	}
	return encodeDataURI(svg), nil
}

// encodeDataURI encodes svg as a data URI: double quotes become single
// quotes, the characters %, #, < and > are percent-encoded and whitespace
// runs collapse to one space.
func encodeDataURI(svg string) string {
	svg = strings.NewReplacer(
		`"`, "'",
		"%", "%25",
		"#", "%23",
		"<", "%3C",
		">", "%3E",
	).Replace(svg)
	return dataURIPrefix + whitespaceRun.ReplaceAllString(svg, " ")
}

// ApplyDarkTheme replaces every currentColor in uri with a light color so
// that icons stay visible on a dark background.
func ApplyDarkTheme(uri string) string {
	return strings.ReplaceAll(uri, "currentColor", darkColor)
}

// Markdown returns the documentation body previewing the icon at uri.
func Markdown(uri string) string {
	return `<img src="` + uri + `" height="56" />`
}

// DecorationImage sizes the icon at uri for inline display next to text.
func DecorationImage(uri string) string {
	return strings.Replace(uri, " xmlns", " height='0.8em' xmlns", 1)
}
