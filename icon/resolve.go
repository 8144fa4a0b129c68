package icon

import (
	"os"
	"path/filepath"
)

// Resolve returns the file backing name.
//
// Indexed names are returned directly. Otherwise the icon directory is
// probed for <name>.json then <name>.svg, and, when the part of name
// before its first slash is a custom set, that set's directory is probed
// for <identifier>.svg. A probe hit is added to the index, which repairs
// misses for files created while nobody was watching.
func (idx *Index) Resolve(name string) (string, bool) {
	if p, ok := idx.Lookup(name); ok {
		return p, true
	}
	if !ValidName(name) {
		return "", false
	}

	iconDir := idx.layout.IconDirPath()
	for _, ext := range []string{".json", ".svg"} {
		if p := filepath.Join(iconDir, filepath.FromSlash(name)+ext); isFile(p) {
			return idx.probed(name, p), true
		}
	}

	if set, id, ok := splitName(name); ok {
		if dir, ok := idx.layout.CustomSVG[set]; ok {
			if p := filepath.Join(idx.layout.abs(dir), filepath.FromSlash(id)+".svg"); isFile(p) {
				return idx.probed(name, p), true
			}
		}
	}

	idx.metrics.Probe(false)
	return "", false
}

func (idx *Index) probed(name, path string) string {
	idx.Set(name, path)
	idx.metrics.Probe(true)
	idx.logger.Debug("icon resolved by probe", "name", name, "path", path)
	return path
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
