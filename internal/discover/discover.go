// Package discover implements the Discover stage's fallback path walker: the
// scope Discover falls back to when fd is disabled or unavailable ("if fd is
// disabled/missing, scope is root"). It still has to honor .gitignore and
// the symbol's language-hint extensions, so it walks the tree applying a
// nested gitignore matcher and doublestar-based extension pruning rather
// than putting every file into scope unfiltered.
package discover

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Walker walks a repository root, honoring .gitignore, and returns paths
// matching the given extension globs. It is the Discover stage's fallback
// when fd is unavailable -- a much plainer instrument than fd, so it only
// needs to get scope roughly right, not exhaustively right.
type Walker struct {
	logger *slog.Logger
}

// NewWalker returns a Walker.
func NewWalker() *Walker {
	return &Walker{logger: slog.Default().With("component", "discover")}
}

// Scope walks root and returns every non-ignored regular file whose name
// matches one of extensions (bare suffixes, e.g. ".rs", ".swift"). An empty extensions
// list matches every file. Paths are returned relative to root, slash
// separated, sorted for determinism.
func (w *Walker) Scope(ctx context.Context, root string, extensions []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("discover: resolving root %s: %w", root, err)
	}

	ignorers := loadGitignores(absRoot, w.logger)

	var paths []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			if isIgnored(ignorers, absRoot, rel, true) {
				return fs.SkipDir
			}
			return nil
		}
		if isIgnored(ignorers, absRoot, rel, false) {
			return nil
		}
		if !matchesAny(rel, extensions) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("discover: walking %s: %w", absRoot, walkErr)
	}

	sort.Strings(paths)
	return paths, nil
}

// matchesAny reports whether rel's base name matches one of extensions.
// extensions are bare suffixes like ".rs", turned into a "*.rs" doublestar
// glob so callers can share extensionsForHint's format with the fd adapter.
func matchesAny(rel string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	base := filepath.Base(rel)
	for _, ext := range extensions {
		pattern := "*" + ext
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// dirIgnorer pairs a compiled .gitignore with the directory (relative to
// root) it governs.
type dirIgnorer struct {
	dir     string
	matcher *gitignore.GitIgnore
}

func loadGitignores(absRoot string, logger *slog.Logger) []dirIgnorer {
	var out []dirIgnorer
	_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return fs.SkipDir
		}
		if d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}
		compiled, err := gitignore.CompileIgnoreFile(path)
		if err != nil {
			logger.Debug("skipping unreadable .gitignore", "path", path, "error", err)
			return nil
		}
		relDir, err := filepath.Rel(absRoot, filepath.Dir(path))
		if err != nil {
			return nil
		}
		if relDir == "" {
			relDir = "."
		}
		out = append(out, dirIgnorer{dir: filepath.ToSlash(relDir), matcher: compiled})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].dir < out[j].dir })
	return out
}

func isIgnored(ignorers []dirIgnorer, _ string, rel string, isDir bool) bool {
	matchPath := rel
	if isDir && !strings.HasSuffix(matchPath, "/") {
		matchPath += "/"
	}
	for _, ig := range ignorers {
		if ig.dir != "." {
			prefix := ig.dir + "/"
			if !strings.HasPrefix(rel, prefix) {
				continue
			}
		}
		relToDir := matchPath
		if ig.dir != "." {
			relToDir = strings.TrimPrefix(matchPath, ig.dir+"/")
		}
		if ig.matcher.MatchesPath(relToDir) {
			return true
		}
	}
	return false
}
