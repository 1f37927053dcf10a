package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

func TestDeduperPrefersHigherTrustOrigin(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	d.Add(searchtypes.RawMatch{Path: "a.go", Line: 10, Origin: searchtypes.OriginFd})
	replaced := d.Add(searchtypes.RawMatch{Path: "a.go", Line: 10, Origin: searchtypes.OriginASTGrep})

	assert.True(t, replaced)
	matches := d.Matches()
	assert.Len(t, matches, 1)
	assert.Equal(t, searchtypes.OriginASTGrep, matches[0].Origin)
	assert.Equal(t, 1, d.Dropped())
}

func TestDeduperKeepsHigherTrustOnLaterLowerTrustAdd(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	d.Add(searchtypes.RawMatch{Path: "a.go", Line: 10, Origin: searchtypes.OriginASTGrep})
	replaced := d.Add(searchtypes.RawMatch{Path: "a.go", Line: 10, Origin: searchtypes.OriginFd})

	assert.False(t, replaced)
	assert.Equal(t, searchtypes.OriginASTGrep, d.Matches()[0].Origin)
}

func TestDeduperDistinctLocationsBothKept(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	d.Add(searchtypes.RawMatch{Path: "a.go", Line: 10})
	d.Add(searchtypes.RawMatch{Path: "a.go", Line: 11})
	d.Add(searchtypes.RawMatch{Path: "b.go", Line: 10})

	assert.Len(t, d.Matches(), 3)
	assert.Equal(t, 0, d.Dropped())
}

func TestComputePrecisionWholeWordMatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, ComputePrecision("fn login_user() {", "login_user"))
	assert.Equal(t, 0.5, ComputePrecision("fn login_user_v2() {", "login_user"))
}

func TestComputeDensityClampsToHalf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.5, ComputeDensity(100, 10))
	assert.Equal(t, 0.0, ComputeDensity(5, 0))
	assert.InDelta(t, 0.2, ComputeDensity(2, 10), 0.0001)
}

func TestComputeClusteringCapsAtSixTenths(t *testing.T) {
	t.Parallel()

	c := ComputeClustering(100, []int{101, 102, 103, 104, 105})
	assert.Equal(t, 0.6, c)
}

func TestComputeClusteringIgnoresSelfAndFarPeers(t *testing.T) {
	t.Parallel()

	c := ComputeClustering(100, []int{100, 500})
	assert.Equal(t, 0.0, c)
}

func TestOriginBoost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.4, OriginBoost(searchtypes.OriginASTGrep))
	assert.Equal(t, 0.2, OriginBoost(searchtypes.OriginRgScoped))
	assert.Equal(t, -0.1, OriginBoost(searchtypes.OriginRga))
	assert.Equal(t, 0.0, OriginBoost(searchtypes.OriginFd))
}

func TestScoreCanExceedOneForStrongAstGrepHit(t *testing.T) {
	t.Parallel()

	got := Score(ScoreInput{
		Origin:       searchtypes.OriginASTGrep,
		Precision:    1.0,
		Density:      0.3,
		ClusterScore: 0.4,
		Novel:        true,
	})
	assert.Greater(t, got, 1.0)
	assert.Equal(t, got, round4(got))
}

func TestScoreNeverNegative(t *testing.T) {
	t.Parallel()

	got := Score(ScoreInput{Origin: searchtypes.OriginRga, Precision: 0, Density: 0, ClusterScore: 0, Novel: false})
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestIsHighConfidence(t *testing.T) {
	t.Parallel()

	assert.True(t, IsHighConfidence(searchtypes.OriginASTGrep, 1.0, 0.5))
	assert.False(t, IsHighConfidence(searchtypes.OriginASTGrep, 1.0, 0.1))
	assert.False(t, IsHighConfidence(searchtypes.OriginASTGrep, 0.9, 0.5))
	assert.False(t, IsHighConfidence(searchtypes.OriginRgScoped, 1.0, 0.5))
}

func TestSortHitsOrdersByScoreThenPath(t *testing.T) {
	t.Parallel()

	hits := []searchtypes.Hit{
		{Path: "z.go", Line: 1, Score: 0.5},
		{Path: "a.go", Line: 2, Score: 0.9},
		{Path: "b.go", Line: 1, Score: 0.9},
	}
	SortHits(hits)

	assert.Equal(t, "a.go", hits[0].Path) // same score, path tie-break
	assert.Equal(t, "b.go", hits[1].Path)
	assert.Equal(t, "z.go", hits[2].Path)
}

func TestReward(t *testing.T) {
	t.Parallel()

	r := Reward(1.0, 0.5, 0.6, 0.3)
	assert.Equal(t, 0.68, r)
}
