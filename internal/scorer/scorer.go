// Package scorer implements the Scorer & Deduper: it turns the Scheduler's
// stream of RawMatches into ranked, deduplicated Hits. Deduplication keys on
// (path, line) using zeebo/xxh3 for a single fast pass, no per-hit
// allocation beyond the map entry itself. Collisions are resolved by origin
// trust: a record replaces the stored one for its location only when its
// origin ranks strictly higher (so ast-grep always wins over a text
// origin); on equal trust the first-seen record is kept.
package scorer

import (
	"regexp"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// HighConfidenceClusterThreshold is the clustering score an ast-grep hit
// with precision 1.0 must clear to trigger cooperative scheduler
// cancellation.
const HighConfidenceClusterThreshold = 0.2

func dedupeKey(path string, line int) uint64 {
	return xxh3.HashString(path) ^ (uint64(line) * 1099511628211)
}

// Deduper accumulates RawMatches, keeping exactly one record per (path,
// line) and resolving collisions by origin trust.
type Deduper struct {
	byKey map[uint64]searchtypes.RawMatch
	order []uint64
	total int
}

func NewDeduper() *Deduper {
	return &Deduper{byKey: make(map[uint64]searchtypes.RawMatch)}
}

// Add folds m into the dedupe set. It returns true when m replaced or
// introduced a record (i.e. it is the current winner for its location).
func (d *Deduper) Add(m searchtypes.RawMatch) bool {
	d.total++
	key := dedupeKey(m.Path, m.Line)
	existing, ok := d.byKey[key]
	if !ok {
		d.byKey[key] = m
		d.order = append(d.order, key)
		return true
	}
	if searchtypes.OriginTrust(m.Origin) > searchtypes.OriginTrust(existing.Origin) {
		d.byKey[key] = m
		return true
	}
	return false
}

// Matches returns the deduplicated set in first-seen order.
func (d *Deduper) Matches() []searchtypes.RawMatch {
	out := make([]searchtypes.RawMatch, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.byKey[key])
	}
	return out
}

// Dropped reports how many Add calls were superseded by a higher-trust
// duplicate or collapsed into an already-seen location.
func (d *Deduper) Dropped() int {
	return d.total - len(d.order)
}

var wordCharRE = regexp.MustCompile(`\w`)

// ComputePrecision reports 1.0 when line contains symbol as a whole word,
// else 0.5 -- matches are never scored at zero, since every RawMatch
// reaching the Scorer already came from a tool-confirmed occurrence.
func ComputePrecision(line, symbol string) float64 {
	if symbol == "" {
		return 0.5
	}
	pattern := `\b` + regexp.QuoteMeta(symbol) + `\b`
	if matched, err := regexp.MatchString(pattern, line); err == nil && matched {
		return 1.0
	}
	return 0.5
}

// ComputeDensity is occurrences of the symbol in the file divided by the
// file's line count, clamped to [0, 0.5].
func ComputeDensity(occurrencesInFile, linesInFile int) float64 {
	if linesInFile <= 0 {
		return 0
	}
	v := float64(occurrencesInFile) / float64(linesInFile)
	if v > 0.5 {
		v = 0.5
	}
	return v
}

// ComputeClustering awards 0.2 per other accepted hit in the same file
// within ±10 lines of line, capped at 0.6.
func ComputeClustering(line int, peersInFile []int) float64 {
	const window = 10
	const perPeer = 0.2
	const cap = 0.6

	near := 0
	for _, p := range peersInFile {
		if p == line {
			continue
		}
		d := p - line
		if d < 0 {
			d = -d
		}
		if d <= window {
			near++
		}
	}
	v := float64(near) * perPeer
	if v > cap {
		v = cap
	}
	return v
}

// OriginBoost applies the per-origin adjustment to a Hit's score.
func OriginBoost(origin string) float64 {
	switch origin {
	case searchtypes.OriginASTGrep:
		return 0.4
	case searchtypes.OriginRgScoped:
		return 0.2
	case searchtypes.OriginRga:
		return -0.1
	default:
		return 0
	}
}

// ScoreInput carries every signal the scoring formula needs for one Hit.
type ScoreInput struct {
	Origin            string
	Precision         float64
	Density           float64
	ClusterScore      float64
	Novel             bool // IsNovel(symbol, path) from the Hint Cache
}

// Score computes a Hit's final score as the additive sum of precision,
// density, clustering, novelty, and origin boost, rounded to 4 decimal
// places to match StageStats.reward's reporting convention. Unlike a
// normalized weighted average, this sum can and does exceed 1.0 for a
// strong ast-grep hit -- that headroom is what lets the high-confidence
// threshold distinguish a clear winner from a merely plausible one.
func Score(in ScoreInput) float64 {
	novelty := 0.0
	if in.Novel {
		novelty = 0.3
	}
	raw := in.Precision + in.Density + in.ClusterScore + novelty + OriginBoost(in.Origin)
	if raw < 0 {
		raw = 0
	}
	return round4(raw)
}

// Reward computes the per-cycle quality scalar reported in
// StageStats.reward: mean(precision)*0.4 + density*0.2 + cluster_score*0.2
// + novelty*0.2.
func Reward(meanPrecision, density, clusterScore, novelty float64) float64 {
	return round4(meanPrecision*0.4 + density*0.2 + clusterScore*0.2 + novelty*0.2)
}

func round4(v float64) float64 {
	const scale = 10000.0
	neg := v < 0
	if neg {
		v = -v
	}
	r := float64(int64(v*scale+0.5)) / scale
	if neg {
		r = -r
	}
	return r
}

// IsHighConfidence reports whether hit alone justifies cancelling the rest
// of the cycle's in-flight probes: an ast-grep origin, perfect precision,
// and clustering at or above HighConfidenceClusterThreshold.
func IsHighConfidence(origin string, precision, clustering float64) bool {
	return origin == searchtypes.OriginASTGrep &&
		precision >= 1.0 &&
		clustering >= HighConfidenceClusterThreshold
}

// SortHits orders hits by descending score, breaking ties by (path, line)
// ascending, the ordering two otherwise-identical cycles' determinism
// depends on.
func SortHits(hits []searchtypes.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Path != hits[j].Path {
			return hits[i].Path < hits[j].Path
		}
		return hits[i].Line < hits[j].Line
	})
}
