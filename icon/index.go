package icon

import (
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/akhenakh/iconify-lsp/metrics"
)

const (
	// iconDirPattern matches <set>/<identifier> files below the icon directory.
	iconDirPattern = "*/*.{json,svg}"
	// customSetPattern matches the files of a custom SVG set directory.
	customSetPattern = "*.svg"
)

// Layout locates the icon directories of one workspace.
type Layout struct {
	// Root is the absolute workspace root.
	Root string
	// IconDir is the icon directory, relative to Root unless absolute.
	IconDir string
	// CustomSVG maps custom set names to directories, relative to Root
	// unless absolute.
	CustomSVG map[string]string
}

type customSet struct {
	name string
	dir  string
}

func (l Layout) abs(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(l.Root, dir)
}

// IconDirPath returns the absolute icon directory.
func (l Layout) IconDirPath() string {
	return l.abs(l.IconDir)
}

// CustomSetDirs returns the absolute custom set directories keyed by set name.
func (l Layout) CustomSetDirs() map[string]string {
	out := make(map[string]string, len(l.CustomSVG))
	for name, dir := range l.CustomSVG {
		out[name] = l.abs(dir)
	}
	return out
}

// customSets lists custom sets sorted by name.
func (l Layout) customSets() []customSet {
	names := slices.Sorted(maps.Keys(l.CustomSVG))
	sets := make([]customSet, 0, len(names))
	for _, name := range names {
		sets = append(sets, customSet{name: name, dir: l.abs(l.CustomSVG[name])})
	}
	return sets
}

// Index maps icon names to file paths for one workspace.
// It is safe for concurrent use.
type Index struct {
	layout  Layout
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[string]string
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger of the index.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Index) {
		idx.logger = l
	}
}

// WithMetrics records index builds and resolver probes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Index) {
		idx.metrics = m
	}
}

// NewIndex discovers the icons of layout.
//
// Files matching <iconDir>/*/*.{json,svg} are named by ParseIconPath. Then,
// in set name order, files matching <dir>/*.svg of each custom set are
// named by ParseCustomSvgPath, overwriting earlier entries with the same
// name. Missing directories contribute nothing.
func NewIndex(layout Layout, opts ...Option) *Index {
	idx := &Index{
		layout: layout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}

	entries := make(map[string]string)
	iconDir := layout.IconDirPath()
	for _, p := range idx.glob(iconDir, iconDirPattern) {
		entries[ParseIconPath(p)] = p
	}
	for _, set := range layout.customSets() {
		for _, p := range idx.glob(set.dir, customSetPattern) {
			entries[ParseCustomSvgPath(p, set.name)] = p
		}
	}
	idx.entries = entries

	idx.logger.Debug("icon index built",
		"root", layout.Root,
		"icon_dir", iconDir,
		"custom_sets", len(layout.CustomSVG),
		"icons", len(entries))
	idx.metrics.IndexBuilt(layout.Root, len(entries))
	return idx
}

// glob returns the absolute paths of the files below dir matching pattern.
func (idx *Index) glob(dir, pattern string) []string {
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		idx.logger.Debug("glob failed", "dir", dir, "pattern", pattern, "error", err)
		return nil
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return paths
}

// Layout returns the layout the index was built from.
func (idx *Index) Layout() Layout {
	return idx.layout
}

// Lookup returns the path indexed for name.
func (idx *Index) Lookup(name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := idx.entries[name]
	return p, ok
}

// Set indexes path under name, replacing any previous entry.
func (idx *Index) Set(name, path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[name] = path
}

// Len returns the number of indexed icons.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Entries returns a copy of the name to path mapping.
func (idx *Index) Entries() map[string]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return maps.Clone(idx.entries)
}

// Names returns the indexed names in ascending order.
func (idx *Index) Names() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Sorted(maps.Keys(idx.entries))
}

// Classify derives the icon name of a file created after the index was
// built. Custom set directories are tried before the icon directory.
func (idx *Index) Classify(path string) (string, bool) {
	if !isIconFile(path) {
		return "", false
	}
	if strings.HasSuffix(path, ".svg") {
		for _, set := range idx.layout.customSets() {
			if matchWithin(set.dir, customSetPattern, path) {
				return ParseCustomSvgPath(path, set.name), true
			}
		}
	}
	if matchWithin(idx.layout.IconDirPath(), iconDirPattern, path) {
		return ParseIconPath(path), true
	}
	return "", false
}

// AddFile indexes a newly created file without rescanning.
func (idx *Index) AddFile(path string) (string, bool) {
	name, ok := idx.Classify(path)
	if !ok {
		return "", false
	}
	idx.Set(name, path)
	idx.logger.Debug("icon added", "name", name, "path", path)
	return name, true
}

// matchWithin reports whether path lies below dir and its relative path
// matches pattern.
func matchWithin(dir, pattern, path string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
	return err == nil && ok
}
