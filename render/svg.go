package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeSVG checks that data is well formed markup with an svg root and
// returns the markup from the root element on, with a default namespace
// declaration added when the root lacks one.
func normalizeSVG(data []byte) (string, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Entity = xml.HTMLEntity

	rootOffset := -1
	hasNamespace := false
	for {
		offset := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parse svg: %v", ErrInvalidIcon, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || rootOffset >= 0 {
			continue
		}
		if start.Name.Local != "svg" {
			return "", fmt.Errorf("%w: root element is %q, not svg", ErrInvalidIcon, start.Name.Local)
		}
		rootOffset = int(offset)
		for _, attr := range start.Attr {
			if attr.Name.Space == "" && attr.Name.Local == "xmlns" {
				hasNamespace = true
			}
		}
	}
	if rootOffset < 0 {
		return "", fmt.Errorf("%w: no svg element", ErrInvalidIcon)
	}

	markup := strings.TrimSpace(string(data[rootOffset:]))
	if hasNamespace {
		return markup, nil
	}

	// Insert the declaration right after the element name.
	end := strings.IndexAny(markup, " \t\r\n/>")
	if end < 0 {
		return "", fmt.Errorf("%w: truncated svg element", ErrInvalidIcon)
	}
	return markup[:end] + ` xmlns="` + svgNamespace + `"` + markup[end:], nil
}
