// Package cycle implements the Stage Pipeline: the finite state machine
// that turns one SearchRequest into a CycleSummary by orchestrating
// Discover, Probe, Disambiguate, Escalate, and Verify, plus the Literal
// Fast Path that short-circuits straight to Verify. Run is the package's
// single entry point and central orchestrator.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/swegrep/swegrep/internal/hintcache"
	"github.com/swegrep/swegrep/internal/rewrite"
	"github.com/swegrep/swegrep/internal/scheduler"
	"github.com/swegrep/swegrep/internal/scorer"
	"github.com/swegrep/swegrep/internal/searchtypes"
	"github.com/swegrep/swegrep/internal/summary"
)

// IndexCollaborator is the Escalate stage's optional inverted-index
// collaborator: a synchronous query(term) -> paths call.
// internal/indexplugin's wazero-hosted plugin implements this.
type IndexCollaborator interface {
	Query(ctx context.Context, term string) ([]string, error)
}

// Deps bundles the Stage Pipeline's collaborators. Adapters keys are the
// tool names ("fd", "rg", "rg-relaxed", "ast-grep", "rga") the Scheduler
// dispatches Tasks against.
type Deps struct {
	Scheduler *scheduler.Scheduler
	Cache     *hintcache.Cache
	Index     IndexCollaborator // nil when the index plugin isn't loaded
	Logger    *slog.Logger
}

// topKDisambiguate bounds how many candidate files Disambiguate runs
// ast-grep against.
const topKDisambiguate = 40

// discoverScopeCap bounds the deduplicated path scope Discover produces.
const discoverScopeCap = 512

// fastPathPrecisionThreshold is the minimum accepted-hit score for the
// Literal Fast Path to declare success instead of falling back to the full
// pipeline.
const fastPathPrecisionThreshold = 0.5

// Run executes one Search Cycle for req and returns its CycleSummary. It
// never returns a non-nil error for ordinary search failures -- those are
// surfaced inside the summary's Fatal field and StageStats instead, so a
// caller's loop never needs special-case error handling for a bad probe.
// A non-nil error here means req itself was invalid before any stage ran.
func Run(ctx context.Context, req searchtypes.SearchRequest, deps Deps) (*searchtypes.CycleSummary, error) {
	req = req.Normalize()
	if req.Symbol == "" {
		return nil, fmt.Errorf("cycle: empty symbol")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cycle", "symbol", req.Symbol)

	cycleID := uuid.NewString()
	cacheLoadStart := time.Now()
	cache := deps.Cache
	if cache == nil {
		cache = hintcache.Open(req.CacheDir)
	}
	startup := searchtypes.StartupStats{CacheMs: time.Since(cacheLoadStart).Milliseconds()}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout())
	defer cancel()
	cancelCtx, cancelSignal := scheduler.WithCancel(ctx)

	variants := rewrite.Build(req.Symbol, req.Language)
	if len(variants) == 0 {
		return &searchtypes.CycleSummary{
			Cycle: cycleID, Symbol: req.Symbol, Fatal: "query rewriter produced no variants",
		}, nil
	}

	cycleStart := time.Now()
	run := &run{
		req: req, deps: deps, cache: cache, logger: logger,
		cancelSignal: cancelSignal, lang: newLanguageMemo(), cycleID: cycleID,
	}

	var acceptedHits []searchtypes.Hit
	var stats searchtypes.StageStats
	stats.LanguageMetrics = make(map[string]searchtypes.LanguageMetrics)
	stats.DroppedCounts = make(map[string]int)

	if rewrite.IsFastPathEligible(req.Symbol, req.DisableASTGrep) {
		hits, ok := run.fastPath(cancelCtx, variants, &stats)
		if ok {
			stats.FastPathTaken = true
			acceptedHits = hits
		}
	}

	if acceptedHits == nil {
		acceptedHits = run.fullPipeline(cancelCtx, variants, &stats)
	}

	scorer.SortHits(acceptedHits)
	if len(acceptedHits) > req.MaxMatches {
		acceptedHits = acceptedHits[:req.MaxMatches]
	}

	stats.CycleLatencyMs = time.Since(cycleStart).Milliseconds()
	stats.Reward = run.reward
	cache.Record(req.Symbol, acceptedHits)
	if err := cache.Flush(); err != nil {
		logger.Warn("cache flush failed", "error", err)
	}

	deduped := run.totalMerged - len(acceptedHits)
	if deduped < 0 {
		deduped = 0
	}
	return summary.Build(cycleID, req, variants, acceptedHits, deduped, stats, startup), nil
}

// run carries per-cycle mutable state threaded through the stage helper
// functions in stages.go and verify.go. It exists so Run's signature stays
// small while the stages still share the cache, scheduler, and accumulated
// counters.
type run struct {
	req          searchtypes.SearchRequest
	deps         Deps
	cache        *hintcache.Cache
	logger       *slog.Logger
	cancelSignal *scheduler.CancelSignal
	lang         *languageMemo
	cycleID      string

	totalMerged int
	reward      float64
}

func ceilDiv(a, b int) int {
	return int(math.Ceil(float64(a) / float64(b)))
}
