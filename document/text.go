package document

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/akhenakh/iconify-lsp/protocol"
)

// Lines converts between byte offsets and LSP positions of one text.
// Characters are counted in UTF-16 code units.
type Lines struct {
	text   string
	starts []int
}

// NewLines indexes the line starts of text.
func NewLines(text string) *Lines {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lines{text: text, starts: starts}
}

// Position returns the position of the byte offset, clamped to the text.
func (l *Lines) Position(offset int) protocol.Position {
	offset = max(0, min(offset, len(l.text)))
	line := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	return protocol.Position{
		Line:      uint(line),
		Character: uint(utf16Len(l.text[l.starts[line]:offset])),
	}
}

// Offset returns the byte offset of pos. Lines past the end clamp to the
// end of the text and characters past the end of a line to its end.
func (l *Lines) Offset(pos protocol.Position) int {
	if int(pos.Line) >= len(l.starts) {
		return len(l.text)
	}
	start := l.starts[pos.Line]
	line := l.line(int(pos.Line))

	units := uint(0)
	for i, r := range line {
		if units >= pos.Character {
			return start + i
		}
		units += uint(utf16.RuneLen(r))
	}
	return start + len(line)
}

func (l *Lines) line(n int) string {
	end := len(l.text)
	if n+1 < len(l.starts) {
		end = l.starts[n+1] - 1
	}
	return strings.TrimSuffix(l.text[l.starts[n]:end], "\r")
}

// Range returns the range spanning the byte offsets [start, end).
func (l *Lines) Range(start, end int) protocol.Range {
	return protocol.Range{Start: l.Position(start), End: l.Position(end)}
}

// LinePrefix returns the text of the line of pos up to pos.
func LinePrefix(text string, pos protocol.Position) string {
	l := NewLines(text)
	if int(pos.Line) >= len(l.starts) {
		return ""
	}
	return text[l.starts[pos.Line]:l.Offset(pos)]
}

// WordAt returns the match of re on the line of pos that touches pos, with
// its range.
func WordAt(text string, pos protocol.Position, re *regexp.Regexp) (string, protocol.Range, bool) {
	l := NewLines(text)
	if int(pos.Line) >= len(l.starts) {
		return "", protocol.Range{}, false
	}
	lineStart := l.starts[pos.Line]
	line := l.line(int(pos.Line))
	cursor := l.Offset(pos) - lineStart

	for _, loc := range re.FindAllStringIndex(line, -1) {
		if loc[0] <= cursor && cursor <= loc[1] && loc[0] < loc[1] {
			return line[loc[0]:loc[1]], l.Range(lineStart+loc[0], lineStart+loc[1]), true
		}
	}
	return "", protocol.Range{}, false
}

func utf16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		n += utf16.RuneLen(r)
		s = s[size:]
	}
	return n
}

// ApplyChanges applies content changes in order. A change without a range
// replaces the whole text.
func ApplyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, ch := range changes {
		if ch.Range == nil {
			text = ch.Text
			continue
		}
		l := NewLines(text)
		start, end := l.Offset(ch.Range.Start), l.Offset(ch.Range.End)
		if end < start {
			start, end = end, start
		}
		text = text[:start] + ch.Text + text[end:]
	}
	return text
}
