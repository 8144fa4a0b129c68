package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListIcons(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"icons/mdi/home.json", "icons/lucide/star.svg", "brand/logo.svg"} {
		path := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, ".iconify-icon.yaml"),
		[]byte("iconDir: icons\ncustomSvg:\n  brand: brand\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, listIcons(&out, root, ""))
	assert.Equal(t, "brand/logo   brand/logo.svg\nlucide/star  icons/lucide/star.svg\nmdi/home     icons/mdi/home.json\n", out.String())

	out.Reset()
	require.NoError(t, listIcons(&out, root, "elsewhere"))
	assert.Equal(t, "brand/logo  brand/logo.svg\n", out.String())
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "iconify-lsp version dev\n", out.String())
}
