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

// stubAdapter is a minimal adapter.Adapter that emits a fixed set of
// RawMatches regardless of the invocation it receives, used to drive the
// Stage Pipeline without shelling out to real binaries.
type stubAdapter struct {
	name      string
	available bool
	matches   []searchtypes.RawMatch
}

func (s *stubAdapter) Name() string    { return s.name }
func (s *stubAdapter) Available() bool { return s.available }
func (s *stubAdapter) Invoke(ctx context.Context, inv adapter.Invocation, out chan<- searchtypes.RawMatch) adapter.Result {
	for _, m := range s.matches {
		select {
		case out <- m:
		case <-ctx.Done():
			return adapter.Result{}
		}
	}
	return adapter.Result{}
}

func newTestRoot(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestRunFastPathForLiteralSymbol(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{
		"src/lib.rs": "fn login_user() {\n    do_login()\n}\n",
	})

	rg := &stubAdapter{name: "rg", available: true, matches: []searchtypes.RawMatch{
		{Path: "src/lib.rs", Line: 1, Origin: searchtypes.OriginRgScoped, RawSnippet: "fn login_user() {"},
	}}
	sched := scheduler.New(4, map[string]adapter.Adapter{
		"rg":         rg,
		"rg-relaxed": &stubAdapter{name: "rg-relaxed", available: true},
		"fd":         &stubAdapter{name: "fd", available: false},
		"ast-grep":   &stubAdapter{name: "ast-grep", available: false},
		"rga":        &stubAdapter{name: "rga", available: false},
	})

	req := searchtypes.SearchRequest{Symbol: "login_user", Root: root, CacheDir: filepath.Join(root, ".cache")}
	summary, err := Run(context.Background(), req, Deps{Scheduler: sched, Cache: hintcache.Open(req.CacheDir)})
	require.NoError(t, err)

	require.NotEmpty(t, summary.TopHits)
	assert.True(t, summary.StageStats.FastPathTaken)
	assert.Equal(t, "src/lib.rs", summary.TopHits[0].Path)
	assert.GreaterOrEqual(t, summary.TopHits[0].Score, fastPathPrecisionThreshold)
	assert.Contains(t, summary.NextActions[0], "src/lib.rs:1")
}

func TestRunEmptyRepoYieldsZeroHitsAndZeroReward(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sched := scheduler.New(4, map[string]adapter.Adapter{
		"rg":         &stubAdapter{name: "rg", available: true},
		"rg-relaxed": &stubAdapter{name: "rg-relaxed", available: true},
		"fd":         &stubAdapter{name: "fd", available: true},
		"ast-grep":   &stubAdapter{name: "ast-grep", available: false},
		"rga":        &stubAdapter{name: "rga", available: false},
	})

	req := searchtypes.SearchRequest{Symbol: "NothingHere", Root: root, CacheDir: filepath.Join(root, ".cache")}
	summary, err := Run(context.Background(), req, Deps{Scheduler: sched, Cache: hintcache.Open(req.CacheDir)})
	require.NoError(t, err)

	assert.Empty(t, summary.TopHits)
	assert.Equal(t, 0.0, summary.Reward)
}

func TestRunRejectsEmptySymbol(t *testing.T) {
	t.Parallel()

	sched := scheduler.New(4, map[string]adapter.Adapter{})
	_, err := Run(context.Background(), searchtypes.SearchRequest{Symbol: "  ", Root: t.TempDir()}, Deps{Scheduler: sched})
	assert.Error(t, err)
}

func TestRunDeterministicOrderingAcrossRepeatCycles(t *testing.T) {
	t.Parallel()

	root := newTestRoot(t, map[string]string{
		"a.rs": "fn widget() {}\n",
		"b.rs": "fn widget() {}\n",
	})

	matches := []searchtypes.RawMatch{
		{Path: "a.rs", Line: 1, Origin: searchtypes.OriginRgScoped, RawSnippet: "fn widget() {}"},
		{Path: "b.rs", Line: 1, Origin: searchtypes.OriginRgScoped, RawSnippet: "fn widget() {}"},
	}

	run := func() *searchtypes.CycleSummary {
		rg := &stubAdapter{name: "rg", available: true, matches: matches}
		sched := scheduler.New(4, map[string]adapter.Adapter{
			"rg":         rg,
			"rg-relaxed": &stubAdapter{name: "rg-relaxed", available: false},
			"fd":         &stubAdapter{name: "fd", available: false},
			"ast-grep":   &stubAdapter{name: "ast-grep", available: false},
			"rga":        &stubAdapter{name: "rga", available: false},
		})
		req := searchtypes.SearchRequest{Symbol: "widget", Root: root, CacheDir: filepath.Join(t.TempDir(), ".cache")}
		s, err := Run(context.Background(), req, Deps{Scheduler: sched, Cache: hintcache.Open(req.CacheDir)})
		require.NoError(t, err)
		return s
	}

	first := run()
	second := run()
	require.Len(t, first.TopHits, 2)
	require.Len(t, second.TopHits, 2)
	assert.Equal(t, first.TopHits[0].Path, second.TopHits[0].Path)
	assert.Equal(t, first.TopHits[1].Path, second.TopHits[1].Path)
}
