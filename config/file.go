package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// WorkspaceFileNames are the workspace config files, in lookup order.
var WorkspaceFileNames = []string{
	".iconify-icon.yaml",
	".iconify-icon.yml",
	".iconify-icon.toml",
}

// IsWorkspaceFile reports whether path names a workspace config file.
func IsWorkspaceFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range WorkspaceFileNames {
		if base == name {
			return true
		}
	}
	return false
}

// LoadWorkspaceFile reads the first workspace config file found in root.
// It returns found=false and no error when none exists.
func LoadWorkspaceFile(root string) (s Settings, found bool, err error) {
	for _, name := range WorkspaceFileNames {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Settings{}, false, fmt.Errorf("read %s: %w", path, err)
		}
		s, err := decodeFile(name, data)
		if err != nil {
			return Settings{}, false, fmt.Errorf("parse %s: %w", path, err)
		}
		return s, true, nil
	}
	return Settings{}, false, nil
}

func decodeFile(name string, data []byte) (Settings, error) {
	var s Settings
	var err error
	if strings.HasSuffix(name, ".toml") {
		err = toml.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	return s, err
}
