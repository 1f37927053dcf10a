package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestScopeFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/lib.rs", "fn widget() {}")
	writeFile(t, root, "src/lib.swift", "func widget() {}")
	writeFile(t, root, "README.md", "# readme")

	paths, err := NewWalker().Scope(context.Background(), root, []string{".rs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs"}, paths)
}

func TestScopeHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "vendor/\n")
	writeFile(t, root, "src/lib.rs", "fn widget() {}")
	writeFile(t, root, "vendor/lib.rs", "fn widget() {}")

	paths, err := NewWalker().Scope(context.Background(), root, []string{".rs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs"}, paths)
}

func TestScopeHonorsNestedGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/.gitignore", "generated.rs\n")
	writeFile(t, root, "pkg/lib.rs", "fn widget() {}")
	writeFile(t, root, "pkg/generated.rs", "fn widget() {}")

	paths, err := NewWalker().Scope(context.Background(), root, []string{".rs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/lib.rs"}, paths)
}

func TestScopeEmptyExtensionsMatchesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.rs", "fn a() {}")
	writeFile(t, root, "b.md", "# b")

	paths, err := NewWalker().Scope(context.Background(), root, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.rs", "b.md"}, paths)
}

func TestScopeSkipsDotGitDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/objects/abc", "binary junk")
	writeFile(t, root, "a.rs", "fn a() {}")

	paths, err := NewWalker().Scope(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.rs"}, paths)
}
