package cycle

import (
	"path/filepath"
	"strings"
	"sync"
)

// extToLang maps a file extension to the canonical language tag used in
// Hit.Language and origin labels. Language tagging is a pure function of
// the extension, memoized per path within a cycle since the same path can
// surface from several origins.
var extToLang = map[string]string{
	".rs":    "rust",
	".swift": "swift",
	".ts":    "ts",
	".tsx":   "tsx",
	".go":    "go",
	".py":    "python",
	".js":    "js",
	".jsx":   "jsx",
	".java":  "java",
	".rb":    "ruby",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".md":    "markdown",
	".toml":  "toml",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
}

// languageMemo memoizes path -> language within a single cycle, since a
// cycle may see the same path from several origins.
type languageMemo struct {
	mu    sync.Mutex
	cache map[string]string
}

func newLanguageMemo() *languageMemo {
	return &languageMemo{cache: make(map[string]string)}
}

func (m *languageMemo) of(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lang, ok := m.cache[path]; ok {
		return lang
	}
	lang := extToLang[strings.ToLower(filepath.Ext(path))]
	m.cache[path] = lang
	return lang
}

// extensionsForHint returns the file extensions Discover should prune to for
// a given language hint, or nil for "no filter".
func extensionsForHint(hint string) []string {
	switch hint {
	case "rust":
		return []string{".rs"}
	case "swift":
		return []string{".swift"}
	case "ts":
		return []string{".ts"}
	case "tsx":
		return []string{".tsx"}
	case "auto-swift-ts":
		return []string{".swift", ".ts", ".tsx"}
	default:
		return nil
	}
}
