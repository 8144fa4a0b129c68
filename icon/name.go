// Package icon discovers icon files in a workspace and maps icon names of
// the form <set>/<identifier> to the files backing them.
package icon

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// TokenPattern matches a complete icon reference; group 1 is the name.
	TokenPattern = regexp.MustCompile(`i-\[([\w/_-]+)]`)

	// CompletionPrefixPattern matches an icon reference being typed at the
	// end of a line prefix: "i-", "i-[", "i-[mdi/ho" or "i-[mdi/home]".
	CompletionPrefixPattern = regexp.MustCompile(`i-(?:\[[\w/_-]*)?]?$`)

	// HoverWordPattern delimits the word under the cursor for hover.
	HoverWordPattern = regexp.MustCompile(`[\w[\]/-]+`)

	// hoverTokenPattern is the complete reference a hover word must end with.
	hoverTokenPattern = regexp.MustCompile(`i-\[([\w/_-]+)]$`)

	validName = regexp.MustCompile(`^[\w/_-]+$`)
)

// ParseIconPath derives the icon name of a file in the icon directory:
// the extension is dropped and the last two path segments are joined
// with a slash, so ".../icons/mdi/home.json" is "mdi/home".
func ParseIconPath(p string) string {
	p = filepath.ToSlash(p)
	for _, ext := range []string{".json", ".svg"} {
		if strings.HasSuffix(p, ext) {
			p = strings.TrimSuffix(p, ext)
			break
		}
	}
	segs := strings.Split(p, "/")
	if len(segs) > 2 {
		segs = segs[len(segs)-2:]
	}
	return strings.Join(segs, "/")
}

// ParseCustomSvgPath derives the icon name of a file of a custom SVG set:
// "<setName>/<basename without .svg>".
func ParseCustomSvgPath(p, setName string) string {
	base := path.Base(filepath.ToSlash(p))
	return setName + "/" + strings.TrimSuffix(base, ".svg")
}

// ValidName reports whether name only uses the icon reference charset.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// HoverName extracts the icon name from a hover word such as
// `class="i-[mdi/home]`, reporting false when the word does not end with a
// complete reference.
func HoverName(word string) (string, bool) {
	m := hoverTokenPattern.FindStringSubmatch(word)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// splitName splits name at its first slash.
func splitName(name string) (set, id string, ok bool) {
	return strings.Cut(name, "/")
}

func isIconFile(p string) bool {
	return strings.HasSuffix(p, ".json") || strings.HasSuffix(p, ".svg")
}
