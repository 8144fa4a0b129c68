package protocol

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentURI_Path(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	assert.Equal(t, "/ws/icons/mdi/home.json", DocumentURI("file:///ws/icons/mdi/home.json").Path())
	assert.Equal(t, "/ws/my icons/a.svg", DocumentURI("file:///ws/my%20icons/a.svg").Path())
	assert.Equal(t, "", DocumentURI("untitled:Untitled-1").Path())
}

func TestURIFromPath_RoundTrip(t *testing.T) {
	p := filepath.Join(string(filepath.Separator)+"ws", "my icons", "a.svg")
	if runtime.GOOS == "windows" {
		p = `C:\ws\my icons\a.svg`
	}
	assert.Equal(t, p, URIFromPath(p).Path())
}

func TestRange_Contains(t *testing.T) {
	token := Range{Start: Position{Line: 1, Character: 4}, End: Position{Line: 1, Character: 16}}

	assert.True(t, token.Contains(Range{Start: Position{Line: 1, Character: 8}, End: Position{Line: 1, Character: 8}}))
	assert.True(t, token.Contains(token))
	assert.True(t, token.Contains(Range{Start: Position{Line: 1, Character: 16}, End: Position{Line: 1, Character: 16}}))
	assert.False(t, token.Contains(Range{Start: Position{Line: 1, Character: 2}, End: Position{Line: 1, Character: 8}}))
	assert.False(t, token.Contains(Range{Start: Position{Line: 2, Character: 0}, End: Position{Line: 2, Character: 0}}))
}
