package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swegrep/swegrep/internal/adapter"
	"github.com/swegrep/swegrep/internal/searchtypes"
)

type fakeAdapter struct {
	name      string
	available bool
	emit      []searchtypes.RawMatch
	delay     time.Duration
}

func (f *fakeAdapter) Name() string    { return f.name }
func (f *fakeAdapter) Available() bool { return f.available }
func (f *fakeAdapter) Invoke(ctx context.Context, inv adapter.Invocation, out chan<- searchtypes.RawMatch) adapter.Result {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return adapter.Result{}
		}
	}
	for _, m := range f.emit {
		select {
		case out <- m:
		case <-ctx.Done():
			return adapter.Result{}
		}
	}
	return adapter.Result{}
}

func TestDispatchRunsAvailableAdapters(t *testing.T) {
	t.Parallel()

	fake := &fakeAdapter{name: "rg", available: true, emit: []searchtypes.RawMatch{{Path: "a.go", Line: 1}}}
	s := New(4, map[string]adapter.Adapter{"rg": fake})

	out := make(chan searchtypes.RawMatch, 10)
	stats := s.Dispatch(context.Background(), []Task{{Tool: "rg"}}, out, time.Now().Add(time.Second))
	close(out)

	var got []searchtypes.RawMatch
	for m := range out {
		got = append(got, m)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "a.go", got[0].Path)
	assert.Empty(t, stats.Errors)
}

func TestDispatchWarnsOnUnavailableAdapter(t *testing.T) {
	t.Parallel()

	fake := &fakeAdapter{name: "sg", available: false}
	s := New(4, map[string]adapter.Adapter{"sg": fake})

	out := make(chan searchtypes.RawMatch, 10)
	stats := s.Dispatch(context.Background(), []Task{{Tool: "sg"}}, out, time.Now().Add(time.Second))

	require.Len(t, stats.Warnings, 1)
	assert.Equal(t, searchtypes.ErrBinaryNotFound, stats.Warnings[0].Kind)
}

func TestDispatchSkipsTasksPastStageDeadline(t *testing.T) {
	t.Parallel()

	fake := &fakeAdapter{name: "rg", available: true}
	s := New(4, map[string]adapter.Adapter{"rg": fake})

	out := make(chan searchtypes.RawMatch, 10)
	past := time.Now().Add(-time.Millisecond)
	stats := s.Dispatch(context.Background(), []Task{{Tool: "rg"}}, out, past)

	assert.Equal(t, 1, stats.Dropped["rg"])
}

func TestCancelSignalTripsOnce(t *testing.T) {
	t.Parallel()

	ctx, signal := WithCancel(context.Background())
	signal.Trip()
	signal.Trip() // must not panic on double-trip

	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be cancelled after Trip")
	}
}

func TestDispatchRespectsPerTaskDeadline(t *testing.T) {
	t.Parallel()

	fake := &fakeAdapter{name: "rg", available: true, delay: 100 * time.Millisecond}
	s := New(4, map[string]adapter.Adapter{"rg": fake})

	out := make(chan searchtypes.RawMatch, 10)
	task := Task{Tool: "rg", Deadline: time.Now().Add(5 * time.Millisecond)}
	start := time.Now()
	s.Dispatch(context.Background(), []Task{task}, out, time.Now().Add(time.Second))
	assert.Less(t, time.Since(start), 90*time.Millisecond)
}
