package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swegrep/swegrep/internal/adapter"
	"github.com/swegrep/swegrep/internal/cycle"
	"github.com/swegrep/swegrep/internal/hintcache"
	"github.com/swegrep/swegrep/internal/scheduler"
)

func TestHandleSearchRejectsEmptySymbol(t *testing.T) {
	s := New(cycle.Deps{Scheduler: scheduler.New(1, map[string]adapter.Adapter{})}, nil)
	_, _, err := s.handleSearch(context.Background(), nil, SearchArgs{})
	require.Error(t, err)
}

func TestHandleSearchRunsACycle(t *testing.T) {
	root := t.TempDir()
	cache := hintcache.Open(root + "/.cache")
	s := New(cycle.Deps{
		Scheduler: scheduler.New(1, map[string]adapter.Adapter{}),
		Cache:     cache,
	}, nil)

	result, summary, err := s.handleSearch(context.Background(), nil, SearchArgs{Symbol: "widget", Root: root})
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.NotNil(t, result)
	assert.Equal(t, "widget", summary.Symbol)
}
