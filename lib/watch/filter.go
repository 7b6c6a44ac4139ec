package watch

import (
	"path/filepath"
	"strings"
)

// ExtensionFilter accepts paths with one of exts. Extensions may be given
// with or without the leading dot.
func ExtensionFilter(exts ...string) Filter {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return func(path string) bool {
		if len(set) == 0 {
			return true
		}
		return set[strings.ToLower(filepath.Ext(path))]
	}
}

// NoTestFilter rejects Go and templ test files.
func NoTestFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasSuffix(base, "_test.go") && !strings.HasSuffix(base, "_test.templ")
}

// NoGeneratedFilter rejects files produced by templ generate, which change
// as a consequence of editing the .templ source.
func NoGeneratedFilter(path string) bool {
	return !strings.HasSuffix(path, "_templ.go") && !strings.HasSuffix(path, "_templ.txt")
}

// NoHiddenFilter rejects editor temp and dot files.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}
