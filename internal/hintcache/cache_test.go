package hintcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

func TestOpenMissingStateYieldsEmptyCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := Open(filepath.Join(dir, "nonexistent"))
	require.NoError(t, c.LoadError())
	assert.Empty(t, c.Seed("anything"))
}

func TestOpenCorruptStateYieldsEmptyCacheNotError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644))

	c := Open(dir)
	require.Error(t, c.LoadError())
	assert.Empty(t, c.Seed("anything"))
}

func TestRecordIsNoOpOnEmptyHits(t *testing.T) {
	t.Parallel()

	c := Open(t.TempDir())
	c.Record("Foo", nil)
	assert.False(t, c.Dirty())
}

func TestRecordThenSeedOrdersByScoreDescending(t *testing.T) {
	t.Parallel()

	c := Open(t.TempDir())
	c.Record("Foo", []searchtypes.Hit{
		{Path: "low.go", Score: 0.2},
		{Path: "high.go", Score: 0.9},
	})

	seeded := c.Seed("Foo")
	require.Len(t, seeded, 2)
	assert.Equal(t, "high.go", seeded[0])
	assert.Equal(t, "low.go", seeded[1])
	assert.True(t, c.Dirty())
}

func TestIsNovel(t *testing.T) {
	t.Parallel()

	c := Open(t.TempDir())
	assert.True(t, c.IsNovel("Foo", "a.go"))

	c.Record("Foo", []searchtypes.Hit{{Path: "a.go", Score: 0.5}})
	assert.False(t, c.IsNovel("Foo", "a.go"))
	assert.True(t, c.IsNovel("Foo", "b.go"))
}

func TestFlushWritesAtomicallyAndClearsDirty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := Open(dir)
	c.Record("Foo", []searchtypes.Hit{{Path: "a.go", Score: 0.7}})
	require.True(t, c.Dirty())

	require.NoError(t, c.Flush())
	assert.False(t, c.Dirty())

	_, err := os.Stat(filepath.Join(dir, stateFileName+".tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should not survive a successful flush")

	reopened := Open(dir)
	require.NoError(t, reopened.LoadError())
	assert.Equal(t, []string{"a.go"}, reopened.Seed("Foo"))
}

func TestFlushIsNoOpWhenNotDirty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := Open(dir)
	require.NoError(t, c.Flush())

	_, err := os.Stat(filepath.Join(dir, stateFileName))
	assert.True(t, os.IsNotExist(err), "flush with no mutation must not create state.json")
}

func TestSeededDirWeightsAccumulatesAcrossRecords(t *testing.T) {
	t.Parallel()

	c := Open(t.TempDir())
	c.Record("Foo", []searchtypes.Hit{{Path: "pkg/a.go", Score: 0.5}})
	c.Record("Bar", []searchtypes.Hit{{Path: "pkg/b.go", Score: 0.5}})

	weights := c.SeededDirWeights()
	require.Contains(t, weights, "pkg")
	assert.Greater(t, weights["pkg"], 0.0)
}
