package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_EffectiveIconDir(t *testing.T) {
	assert.Equal(t, DefaultIconDir, Settings{}.EffectiveIconDir())
	assert.Equal(t, "dl", Settings{DownloadDir: "dl"}.EffectiveIconDir())
	assert.Equal(t, "icons", Settings{IconDir: "icons", DownloadDir: "dl"}.EffectiveIconDir())
}

func TestSettings_TargetLanguages(t *testing.T) {
	assert.True(t, Settings{}.IsTargetLanguage("html"))
	assert.False(t, Settings{}.IsTargetLanguage("go"))

	s := Settings{TargetLanguage: []string{"go"}}
	assert.True(t, s.IsTargetLanguage("go"))
	assert.False(t, s.IsTargetLanguage("html"))
}

func TestSettings_Overlay(t *testing.T) {
	off := false
	base := Settings{
		IconDir:        "icons",
		CustomSVG:      map[string]string{"brand": "assets/brand"},
		TargetLanguage: []string{"html"},
	}
	out := base.Overlay(Settings{ColorTheme: "dark", CustomSVG: map[string]string{"ui": "ui"}, Decorations: &off})

	assert.Equal(t, "icons", out.IconDir)
	assert.Equal(t, map[string]string{"ui": "ui"}, out.CustomSVG)
	assert.Equal(t, []string{"html"}, out.TargetLanguage)
	assert.True(t, out.Dark())
	assert.False(t, out.DecorationsEnabled())

	// base is untouched
	assert.Equal(t, map[string]string{"brand": "assets/brand"}, base.CustomSVG)
	assert.True(t, base.DecorationsEnabled())
}

func TestParseClientSettings(t *testing.T) {
	t.Run("namespaced", func(t *testing.T) {
		s, found, err := ParseClientSettings(json.RawMessage(`{"iconifyIcon":{"iconDir":"a","customSvg":{"x":"y"}}}`))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "a", s.IconDir)
		assert.Equal(t, map[string]string{"x": "y"}, s.CustomSVG)
	})

	t.Run("legacy namespace", func(t *testing.T) {
		s, found, err := ParseClientSettings(json.RawMessage(`{"tailwindcssIconifyIconIntelliSense":{"downloadDir":"dl"}}`))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "dl", s.EffectiveIconDir())
	})

	t.Run("bare section", func(t *testing.T) {
		s, found, err := ParseClientSettings(json.RawMessage(`{"colorTheme":"dark"}`))
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, s.Dark())
	})

	t.Run("emptied namespace", func(t *testing.T) {
		s, found, err := ParseClientSettings(json.RawMessage(`{"iconifyIcon":{}}`))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, Settings{}, s)
	})

	for name, raw := range map[string]string{
		"null":            `null`,
		"empty":           ``,
		"empty object":    `{}`,
		"other namespace": `{"editor":{"tabSize":2}}`,
	} {
		t.Run(name, func(t *testing.T) {
			s, found, err := ParseClientSettings(json.RawMessage(raw))
			require.NoError(t, err)
			assert.False(t, found)
			assert.Equal(t, Settings{}, s)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, _, err := ParseClientSettings(json.RawMessage(`[1,2]`))
		assert.Error(t, err)
	})
}

func TestLoadWorkspaceFile(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		_, found, err := LoadWorkspaceFile(t.TempDir())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("yaml", func(t *testing.T) {
		root := t.TempDir()
		content := "iconDir: assets/icons\ncustomSvg:\n  brand: assets/brand\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, ".iconify-icon.yaml"), []byte(content), 0o644))

		s, found, err := LoadWorkspaceFile(root)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "assets/icons", s.IconDir)
		assert.Equal(t, map[string]string{"brand": "assets/brand"}, s.CustomSVG)
	})

	t.Run("toml", func(t *testing.T) {
		root := t.TempDir()
		content := "iconDir = \"gen\"\ncolorTheme = \"dark\"\n\n[customSvg]\nui = \"svg/ui\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, ".iconify-icon.toml"), []byte(content), 0o644))

		s, found, err := LoadWorkspaceFile(root)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "gen", s.IconDir)
		assert.True(t, s.Dark())
		assert.Equal(t, map[string]string{"ui": "svg/ui"}, s.CustomSVG)
	})

	t.Run("malformed", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, ".iconify-icon.yml"), []byte("iconDir: [unclosed"), 0o644))
		_, _, err := LoadWorkspaceFile(root)
		assert.Error(t, err)
	})

	assert.True(t, IsWorkspaceFile("/ws/.iconify-icon.toml"))
	assert.False(t, IsWorkspaceFile("/ws/icon.toml"))
}

func TestLoadOptions(t *testing.T) {
	t.Setenv("ICONIFY_LSP_LOG_LEVEL", "debug")
	t.Setenv("ICONIFY_LSP_DECORATION_INTERVAL", "250ms")
	t.Setenv("ICONIFY_LSP_WATCH", "false")

	o, err := LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, o.SlogLevel())
	assert.Equal(t, 250*time.Millisecond, o.DecorationInterval)
	assert.False(t, o.Watch)
	assert.NoError(t, o.Validate())

	o.LogLevel = "verbose"
	assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)

	o.LogLevel = "info"
	o.DecorationInterval = -time.Second
	assert.ErrorIs(t, o.Validate(), ErrInvalidOptions)
}
