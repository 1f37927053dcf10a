package cycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swegrep/swegrep/internal/adapter"
	"github.com/swegrep/swegrep/internal/hintcache"
	"github.com/swegrep/swegrep/internal/scheduler"
	"github.com/swegrep/swegrep/internal/searchtypes"
)

// fixtureRoot copies testdata/multi_lang into a fresh temp dir so Verify's
// on-disk context/body reads see a real, isolated repository snapshot.
func fixtureRoot(t *testing.T) string {
	t.Helper()
	src := filepath.Join("..", "..", "testdata", "multi_lang")
	root := t.TempDir()
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(root, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0o644)
	})
	require.NoError(t, err)
	return root
}

func runWithMatches(t *testing.T, root, symbol string, matches []searchtypes.RawMatch) *searchtypes.CycleSummary {
	t.Helper()
	rg := &stubAdapter{name: "rg", available: true, matches: matches}
	sched := scheduler.New(4, map[string]adapter.Adapter{
		"rg":         rg,
		"rg-relaxed": &stubAdapter{name: "rg-relaxed", available: false},
		"fd":         &stubAdapter{name: "fd", available: false},
		"ast-grep":   &stubAdapter{name: "ast-grep", available: false},
		"rga":        &stubAdapter{name: "rga", available: false},
	})
	req := searchtypes.SearchRequest{
		Symbol: symbol, Root: root, CacheDir: filepath.Join(root, ".cache"), RetrieveBody: true,
	}
	summary, err := Run(context.Background(), req, Deps{Scheduler: sched, Cache: hintcache.Open(req.CacheDir)})
	require.NoError(t, err)
	return summary
}

// Scenario 1: literal symbol over a Rust fixture takes the fast path and
// lands the top hit at the known definition site.
func TestMultiLangLoginUserRustFastPath(t *testing.T) {
	t.Parallel()
	root := fixtureRoot(t)

	summary := runWithMatches(t, root, "login_user", []searchtypes.RawMatch{
		{Path: "src/lib.rs", Line: 1, Origin: searchtypes.OriginRgScoped, RawSnippet: "pub fn login_user(username: &str, password: &str) -> Result<Session, AuthError> {"},
	})

	require.NotEmpty(t, summary.TopHits)
	assert.True(t, summary.StageStats.FastPathTaken)
	assert.Equal(t, "src/lib.rs", summary.TopHits[0].Path)
	assert.Equal(t, 1, summary.TopHits[0].Line)
	assert.Contains(t, summary.TopHits[0].Origin, searchtypes.OriginRgScoped)
	assert.GreaterOrEqual(t, summary.TopHits[0].Score, 1.0)
}

// Scenario 2: a Swift hit carries the swift language tag and origin label,
// and its hint joins the enclosing struct with the declaration.
func TestMultiLangFetchUserSwift(t *testing.T) {
	t.Parallel()
	root := fixtureRoot(t)

	summary := runWithMatches(t, root, "fetchUser", []searchtypes.RawMatch{
		{Path: "App.swift", Line: 6, Origin: searchtypes.OriginRgScoped, RawSnippet: "    func fetchUser(id: String) async throws -> User {"},
	})

	require.NotEmpty(t, summary.TopHits)
	hit := summary.TopHits[0]
	assert.Equal(t, "App.swift", hit.Path)
	assert.Equal(t, "swift", hit.Language)
	assert.Contains(t, hit.OriginLabel, "[swift]")
	assert.Contains(t, summary.Hints, "struct UserAPI :: func fetchUser")
}

// Scenario 3: getUser appears in both a .ts module and the .tsx component
// that calls it; both hits should be returned and ranked.
func TestMultiLangGetUserAcrossTSAndTSX(t *testing.T) {
	t.Parallel()
	root := fixtureRoot(t)

	summary := runWithMatches(t, root, "getUser", []searchtypes.RawMatch{
		{Path: "src/api/user.ts", Line: 6, Origin: searchtypes.OriginRgScoped, RawSnippet: "export async function getUser(id: string): Promise<User> {"},
		{Path: "src/components/UserCard.tsx", Line: 14, Origin: searchtypes.OriginRgScoped, RawSnippet: "      const fetched = await getUser(userId);"},
	})

	require.Len(t, summary.TopHits, 2)
	var sawTS, sawTSX bool
	for _, hit := range summary.TopHits {
		switch filepath.Ext(hit.Path) {
		case ".ts":
			sawTS = true
		case ".tsx":
			sawTSX = true
		}
	}
	assert.True(t, sawTS)
	assert.True(t, sawTSX)
	assert.Greater(t, summary.Reward, 0.0)
}

// Scenario 4: a component symbol's top hit is the .tsx definition, tagged
// with the tsx language.
func TestMultiLangUserCardComponent(t *testing.T) {
	t.Parallel()
	root := fixtureRoot(t)

	summary := runWithMatches(t, root, "UserCard", []searchtypes.RawMatch{
		{Path: "src/components/UserCard.tsx", Line: 8, Origin: searchtypes.OriginRgScoped, RawSnippet: "export function UserCard({ userId }: UserCardProps) {"},
	})

	require.NotEmpty(t, summary.TopHits)
	hit := summary.TopHits[0]
	assert.Equal(t, "src/components/UserCard.tsx", hit.Path)
	assert.Equal(t, "tsx", hit.Language)
	assert.Contains(t, hit.OriginLabel, "[tsx]")
	assert.Contains(t, hit.OriginLabel, "[component]")
}

// Scenario 5: a hit in a file over the 512 KiB body cap must not retrieve a
// body, but must not fail the cycle either.
func TestMultiLangOversizedSwiftBodySkipped(t *testing.T) {
	t.Parallel()
	root := fixtureRoot(t)

	summary := runWithMatches(t, root, "fetchUser", []searchtypes.RawMatch{
		{Path: "large/BigService.swift", Line: 5, Origin: searchtypes.OriginRgScoped, RawSnippet: "    func fetchUser(id: String) async throws -> String {"},
	})

	require.NotEmpty(t, summary.TopHits)
	hit := summary.TopHits[0]
	assert.False(t, hit.BodyRetrieved)
	assert.Empty(t, hit.Body)
	assert.Empty(t, summary.Fatal)
}

// Scenario 6: running the same symbol twice marks the second cycle's hit
// as non-novel and advances the cache file's mtime.
func TestMultiLangRepeatCycleLosesNovelty(t *testing.T) {
	t.Parallel()
	root := fixtureRoot(t)
	matches := []searchtypes.RawMatch{
		{Path: "src/lib.rs", Line: 1, Origin: searchtypes.OriginRgScoped, RawSnippet: "pub fn login_user(username: &str, password: &str) -> Result<Session, AuthError> {"},
	}

	first := runWithMatches(t, root, "login_user", matches)
	require.NotEmpty(t, first.TopHits)

	cachePath := filepath.Join(root, ".cache", "state.json")
	firstInfo, err := os.Stat(cachePath)
	require.NoError(t, err)

	second := runWithMatches(t, root, "login_user", matches)
	require.NotEmpty(t, second.TopHits)
	assert.Equal(t, 0.0, second.StageStats.Novelty)

	secondInfo, err := os.Stat(cachePath)
	require.NoError(t, err)
	assert.False(t, secondInfo.ModTime().Before(firstInfo.ModTime()))
}
