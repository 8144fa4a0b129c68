package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhenakh/iconify-lsp/config"
	"github.com/akhenakh/iconify-lsp/icon"
	"github.com/akhenakh/iconify-lsp/protocol"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_ForURI(t *testing.T) {
	r := NewRegistry()
	outer := r.Add("outer", "/ws")
	inner := r.Add("inner", "/ws/packages/app")
	r.Add("sibling", "/ws-other")

	tests := []struct {
		uri  protocol.DocumentURI
		want *Context
	}{
		{"file:///ws/index.html", outer},
		{"file:///ws/packages/app/src/main.ts", inner},
		{"file:///ws/packages/application/x.ts", outer},
		{"file:///ws", outer},
	}
	for _, tt := range tests {
		t.Run(string(tt.uri), func(t *testing.T) {
			got, ok := r.ForURI(tt.uri)
			require.True(t, ok)
			assert.Same(t, tt.want, got)
		})
	}

	_, ok := r.ForURI("file:///elsewhere/a.html")
	assert.False(t, ok)
	_, ok = r.ForURI("untitled:Untitled-1")
	assert.False(t, ok)
}

func TestRegistry_Lifecycle(t *testing.T) {
	var added []string
	r := NewRegistry(WithAddHook(func(c *Context) { added = append(added, c.Name()) }))

	c, ok := r.AddFolder(protocol.WorkspaceFolder{URI: "file:///ws/a", Name: "a"})
	require.True(t, ok)
	closed := 0
	c.OnClose(func() { closed++ })

	_, ok = r.AddFolder(protocol.WorkspaceFolder{URI: "file:///ws/b"})
	require.True(t, ok)
	_, ok = r.Get("b")
	assert.True(t, ok, "name defaults to the folder base name")

	_, ok = r.AddFolder(protocol.WorkspaceFolder{URI: "vsls:/remote", Name: "remote"})
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, added)
	require.Len(t, r.All(), 2)
	assert.Equal(t, "a", r.All()[0].Name())

	assert.True(t, r.RemoveFolder(protocol.WorkspaceFolder{URI: "file:///ws/a", Name: "a"}))
	assert.Equal(t, 1, closed)
	assert.False(t, r.Remove("a"))

	assert.True(t, r.RemoveFolder(protocol.WorkspaceFolder{URI: "file:///ws/b", Name: "renamed"}))
	assert.Empty(t, r.All())
}

func TestContext_IndexAndInvalidate(t *testing.T) {
	root := t.TempDir()
	home := writeFile(t, filepath.Join(root, "src/assets/icons/mdi/home.json"), `{"body":""}`)

	r := NewRegistry()
	c := r.Add("ws", root)

	builds := 0
	c.OnIndexBuilt(func(*icon.Index) { builds++ })

	idx := c.Index()
	assert.Same(t, idx, c.Index())
	assert.Equal(t, 1, builds)
	p, ok := idx.Lookup("mdi/home")
	require.True(t, ok)
	assert.Equal(t, home, p)

	c.StoreImage("mdi/home", "data:image/svg+xml,x")
	_, ok = c.CachedImage("mdi/home")
	assert.True(t, ok)

	r.InvalidateAll()
	_, ok = c.CachedImage("mdi/home")
	assert.False(t, ok)
	assert.NotSame(t, idx, c.Index())
	assert.Equal(t, 2, builds)
}

func TestContext_Settings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "gen/lucide/star.svg"), "<svg/>")
	writeFile(t, filepath.Join(root, "brand/logo.svg"), "<svg/>")

	r := NewRegistry()
	c := r.Add("ws", root)
	assert.Equal(t, config.DefaultIconDir, c.Layout().IconDir)
	assert.False(t, c.Dark())

	r.SetClientSettings(config.Settings{IconDir: "gen", ColorTheme: "dark"})
	assert.Equal(t, "gen", c.Layout().IconDir)
	assert.True(t, c.Dark())
	assert.Equal(t, []string{"lucide/star"}, c.Index().Names())

	writeFile(t, filepath.Join(root, ".iconify-icon.yaml"), "colorTheme: light\ncustomSvg:\n  brand: brand\n")
	c.Invalidate()
	assert.False(t, c.Dark())
	assert.Equal(t, "gen", c.Settings().IconDir)
	assert.Equal(t, []string{"brand/logo", "lucide/star"}, c.Index().Names())

	t.Run("added contexts get the client settings", func(t *testing.T) {
		other := r.Add("other", t.TempDir())
		assert.Equal(t, "gen", other.Layout().IconDir)
	})

	t.Run("broken config file is ignored", func(t *testing.T) {
		writeFile(t, filepath.Join(root, ".iconify-icon.yaml"), "customSvg: [")
		c.Invalidate()
		assert.True(t, c.Dark())
	})
}
