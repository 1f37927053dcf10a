package scorer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

func writeLines(t *testing.T, root, name string, n int) {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line")
		if i < n {
			b.WriteString("\n")
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(b.String()), 0o644))
}

func TestExpandContextWithinBounds(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeLines(t, root, "f.go", 20)

	hit := &searchtypes.Hit{Path: "f.go", Line: 10}
	require.NoError(t, ExpandContext(root, hit, 2, 4))

	assert.Equal(t, 8, hit.ContextStart)
	assert.Equal(t, 14, hit.ContextEnd)
	assert.False(t, hit.AutoExpandedContext)
	assert.Contains(t, hit.ExpandedSnippet, "008 line")
}

func TestExpandContextWidensOnTruncationNearStart(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeLines(t, root, "f.go", 20)

	hit := &searchtypes.Hit{Path: "f.go", Line: 1}
	require.NoError(t, ExpandContext(root, hit, 2, 4))

	assert.Equal(t, 1, hit.ContextStart)
	assert.True(t, hit.AutoExpandedContext)
	assert.Equal(t, 5, hit.ContextEnd) // widened to ±4 after, still clamped
}

func TestExpandContextClampsNearEndOfFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeLines(t, root, "f.go", 5)

	hit := &searchtypes.Hit{Path: "f.go", Line: 5}
	require.NoError(t, ExpandContext(root, hit, 2, 4))

	assert.Equal(t, 5, hit.ContextEnd)
	assert.True(t, hit.AutoExpandedContext)
}

func TestShouldRetrieveBodyExplicitRequest(t *testing.T) {
	t.Parallel()

	req := searchtypes.SearchRequest{RetrieveBody: true}
	assert.True(t, ShouldRetrieveBody(req, searchtypes.Hit{Language: "ts"}))
}

func TestShouldRetrieveBodyDefaultLanguages(t *testing.T) {
	t.Parallel()

	req := searchtypes.SearchRequest{}
	assert.True(t, ShouldRetrieveBody(req, searchtypes.Hit{Language: string(searchtypes.LangRust)}))
	assert.True(t, ShouldRetrieveBody(req, searchtypes.Hit{Language: string(searchtypes.LangSwift)}))
	assert.False(t, ShouldRetrieveBody(req, searchtypes.Hit{Language: string(searchtypes.LangTS)}))
}

func TestRetrieveBodyRejectsOversizedFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	big := make([]byte, searchtypes.MaxBodyBytes+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.go"), big, 0o644))

	hit := &searchtypes.Hit{Path: "big.go"}
	warn := RetrieveBody(root, hit)
	require.NotNil(t, warn)
	assert.Equal(t, searchtypes.ErrFileTooLarge, warn.Kind)
	assert.False(t, hit.BodyRetrieved)
}

func TestRetrieveBodyRejectsNonUTF8(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.go"), []byte{0xff, 0xfe, 0x00}, 0o644))

	hit := &searchtypes.Hit{Path: "bad.go"}
	warn := RetrieveBody(root, hit)
	require.NotNil(t, warn)
	assert.Equal(t, searchtypes.ErrNonUTF8, warn.Kind)
	assert.False(t, hit.BodyRetrieved)
}

func TestRetrieveBodySucceeds(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ok.go"), []byte("package ok\n"), 0o644))

	hit := &searchtypes.Hit{Path: "ok.go"}
	warn := RetrieveBody(root, hit)
	assert.Nil(t, warn)
	assert.True(t, hit.BodyRetrieved)
	assert.Equal(t, "package ok\n", hit.Body)
}
