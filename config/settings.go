// Package config holds the icon settings supplied by the editor client or a
// workspace config file, and the process options of the server binary.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Namespace is the settings section read from the client.
const Namespace = "iconifyIcon"

// legacyNamespace is accepted for settings written for the VS Code extension.
const legacyNamespace = "tailwindcssIconifyIconIntelliSense"

// DefaultIconDir is used when neither iconDir nor downloadDir is set.
const DefaultIconDir = "src/assets/icons"

// DefaultTargetLanguages are the language ids completion and hover attach to.
var DefaultTargetLanguages = []string{
	"html",
	"javascript",
	"javascriptreact",
	"typescript",
	"typescriptreact",
	"vue",
	"svelte",
	"astro",
	"markdown",
}

// Settings are the icon settings of a workspace.
type Settings struct {
	// IconDir holds generated icon definitions as <set>/<name>.{json,svg}.
	IconDir string `json:"iconDir,omitempty" yaml:"iconDir,omitempty" toml:"iconDir,omitempty"`
	// DownloadDir is the legacy name of IconDir.
	DownloadDir string `json:"downloadDir,omitempty" yaml:"downloadDir,omitempty" toml:"downloadDir,omitempty"`
	// CustomSVG maps a set name to a directory of hand-authored SVG files.
	CustomSVG map[string]string `json:"customSvg,omitempty" yaml:"customSvg,omitempty" toml:"customSvg,omitempty"`
	// TargetLanguage lists the language ids to serve.
	TargetLanguage []string `json:"targetLanguage,omitempty" yaml:"targetLanguage,omitempty" toml:"targetLanguage,omitempty"`
	// ColorTheme is the kind of the editor theme: "dark" or "light".
	ColorTheme string `json:"colorTheme,omitempty" yaml:"colorTheme,omitempty" toml:"colorTheme,omitempty"`
	// Decorations toggles inline icon decorations.
	Decorations *bool `json:"decorations,omitempty" yaml:"decorations,omitempty" toml:"decorations,omitempty"`
}

// EffectiveIconDir returns iconDir, else downloadDir, else DefaultIconDir.
func (s Settings) EffectiveIconDir() string {
	switch {
	case s.IconDir != "":
		return s.IconDir
	case s.DownloadDir != "":
		return s.DownloadDir
	}
	return DefaultIconDir
}

// TargetLanguages returns the configured language ids or the defaults.
func (s Settings) TargetLanguages() []string {
	if len(s.TargetLanguage) == 0 {
		return DefaultTargetLanguages
	}
	return s.TargetLanguage
}

// IsTargetLanguage reports whether languageID is served.
func (s Settings) IsTargetLanguage(languageID string) bool {
	return slices.Contains(s.TargetLanguages(), languageID)
}

// Dark reports whether the editor theme is dark.
func (s Settings) Dark() bool {
	return s.ColorTheme == "dark"
}

// DecorationsEnabled reports whether inline decorations are published.
func (s Settings) DecorationsEnabled() bool {
	return s.Decorations == nil || *s.Decorations
}

// Overlay returns s with every non-zero field of o applied on top.
func (s Settings) Overlay(o Settings) Settings {
	out := s.Clone()
	if o.IconDir != "" {
		out.IconDir = o.IconDir
	}
	if o.DownloadDir != "" {
		out.DownloadDir = o.DownloadDir
	}
	if o.CustomSVG != nil {
		out.CustomSVG = maps.Clone(o.CustomSVG)
	}
	if o.TargetLanguage != nil {
		out.TargetLanguage = slices.Clone(o.TargetLanguage)
	}
	if o.ColorTheme != "" {
		out.ColorTheme = o.ColorTheme
	}
	if o.Decorations != nil {
		v := *o.Decorations
		out.Decorations = &v
	}
	return out
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.CustomSVG = maps.Clone(s.CustomSVG)
	out.TargetLanguage = slices.Clone(s.TargetLanguage)
	if s.Decorations != nil {
		v := *s.Decorations
		out.Decorations = &v
	}
	return out
}

// settingKeys are the JSON keys of Settings, used to recognise a bare
// settings section.
var settingKeys = []string{"iconDir", "downloadDir", "customSvg", "targetLanguage", "colorTheme", "decorations"}

// ParseClientSettings decodes settings sent by the client through
// initializationOptions or workspace/didChangeConfiguration. The payload
// may be wrapped in the settings namespace or be the section itself.
//
// found is false when the payload carries no settings of ours: null, an
// empty payload, or an object holding only other namespaces. Callers keep
// their current settings in that case.
func ParseClientSettings(raw json.RawMessage) (s Settings, found bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return s, false, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return s, false, fmt.Errorf("decode settings: %w", err)
	}
	section, ok := namespaceSection(wrapped)
	if !ok {
		// A bare section must hold at least one of our keys.
		for _, key := range settingKeys {
			if _, ok := wrapped[key]; ok {
				section = raw
				break
			}
		}
		if section == nil {
			return s, false, nil
		}
	}

	if err := json.Unmarshal(section, &s); err != nil {
		return s, false, fmt.Errorf("decode %s settings: %w", Namespace, err)
	}
	return s, true, nil
}

func namespaceSection(wrapped map[string]json.RawMessage) (json.RawMessage, bool) {
	for _, ns := range []string{Namespace, legacyNamespace} {
		if section, ok := wrapped[ns]; ok {
			return section, true
		}
	}
	return nil, false
}
