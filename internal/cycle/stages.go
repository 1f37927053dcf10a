package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/swegrep/swegrep/internal/adapter"
	"github.com/swegrep/swegrep/internal/discover"
	"github.com/swegrep/swegrep/internal/rewrite"
	"github.com/swegrep/swegrep/internal/scheduler"
	"github.com/swegrep/swegrep/internal/scorer"
	"github.com/swegrep/swegrep/internal/searchtypes"
)

// fastPath runs the Literal Fast Path: a single rg invocation with every
// variant OR'd into one regex, scoped to root plus any cache-seeded paths.
// It returns the finalized hits and true on success; false tells Run to
// fall back to the full pipeline.
func (r *run) fastPath(ctx context.Context, variants []searchtypes.QueryVariant, stats *searchtypes.StageStats) ([]searchtypes.Hit, bool) {
	start := time.Now()
	defer func() { stats.ProbeMs += time.Since(start).Milliseconds() }()

	union := rewriteUnion(variants)
	scope := r.cache.Seed(r.req.Symbol)

	out := make(chan searchtypes.RawMatch, r.req.MaxMatches*2)
	done := make(chan *scheduler.Stats, 1)
	go func() {
		task := scheduler.Task{
			Tool: "rg",
			Invocation: adapter.Invocation{
				Root: r.req.Root, Scope: scope,
				Variant:    searchtypes.QueryVariant{Text: union, Kind: searchtypes.VariantRegex},
				MaxMatches: r.req.MaxMatches,
			},
			Deadline: time.Now().Add(scheduler.ProbeDeadline),
		}
		done <- r.deps.Scheduler.Dispatch(ctx, []scheduler.Task{task}, out, time.Now().Add(scheduler.ProbeDeadline))
		close(out)
	}()

	dedup := scorer.NewDeduper()
	for m := range out {
		dedup.Add(m)
	}
	dispatchStats := <-done
	mergeWarnings(stats, dispatchStats)

	hits := r.finalize(dedup.Matches(), stats)
	if len(hits) == 0 {
		return nil, false
	}
	meetsThreshold := false
	for _, h := range hits {
		if h.Score >= fastPathPrecisionThreshold {
			meetsThreshold = true
			break
		}
	}
	if !meetsThreshold {
		return nil, false
	}
	r.totalMerged = len(hits)
	return hits, true
}

// fullPipeline runs Discover -> Probe -> Disambiguate -> (Escalate) ->
// Verify and returns the finalized accepted hits.
func (r *run) fullPipeline(ctx context.Context, variants []searchtypes.QueryVariant, stats *searchtypes.StageStats) []searchtypes.Hit {
	scope := r.discover(ctx, stats)

	dedup := scorer.NewDeduper()
	r.probe(ctx, variants, scope, dedup, stats)

	candidateFiles := topFiles(dedup.Matches(), topKDisambiguate)
	r.disambiguate(ctx, candidateFiles, dedup, stats)

	threshold := ceilDiv(r.req.MaxMatches, 5)
	if len(dedup.Matches()) < threshold {
		r.escalate(ctx, variants, dedup, stats)
	}

	verifyStart := time.Now()
	hits := r.finalize(dedup.Matches(), stats)
	stats.VerifyMs += time.Since(verifyStart).Milliseconds()
	r.totalMerged = len(dedup.Matches())
	return hits
}

// discover enumerates a deduplicated path scope via fd, biased by Hint
// Cache directory weights and pruned by language-hint extensions. If fd is
// disabled or unavailable, it falls back to internal/discover's
// .gitignore-aware walker rather than leaving scope empty -- an empty
// scope would otherwise widen every later rg invocation to an unscoped
// repo-wide search.
func (r *run) discover(ctx context.Context, stats *searchtypes.StageStats) []string {
	start := time.Now()
	defer func() { stats.DiscoverMs += time.Since(start).Milliseconds() }()

	if !r.req.Tools.EnableFd {
		return r.fallbackDiscover(ctx)
	}
	fd, ok := r.deps.Scheduler.Adapters["fd"]
	if !ok || !fd.Available() {
		return r.fallbackDiscover(ctx)
	}

	out := make(chan searchtypes.RawMatch, discoverScopeCap*2)
	deadline := time.Now().Add(scheduler.DiscoverDeadline)
	task := scheduler.Task{
		Tool: "fd",
		Invocation: adapter.Invocation{
			Root:       r.req.Root,
			Extensions: extensionsForHint(string(r.req.Language)),
			MaxMatches: discoverScopeCap,
		},
		Deadline: deadline,
	}

	go func() {
		r.deps.Scheduler.Dispatch(ctx, []scheduler.Task{task}, out, deadline)
		close(out)
	}()

	seen := make(map[string]bool)
	var paths []string
	for m := range out {
		if seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		paths = append(paths, m.Path)
		if len(paths) >= discoverScopeCap {
			break
		}
	}

	weights := r.cache.SeededDirWeights()
	if len(weights) > 0 {
		sortByDirWeight(paths, weights)
	}
	return paths
}

func (r *run) fallbackDiscover(ctx context.Context) []string {
	paths, err := discover.NewWalker().Scope(ctx, r.req.Root, extensionsForHint(string(r.req.Language)))
	if err != nil {
		return nil
	}
	if len(paths) > discoverScopeCap {
		paths = paths[:discoverScopeCap]
	}
	weights := r.cache.SeededDirWeights()
	if len(weights) > 0 {
		sortByDirWeight(paths, weights)
	}
	return paths
}

// probe issues every QueryVariant as a parallel rg invocation over scope,
// folding RawMatches into dedup as they arrive.
func (r *run) probe(ctx context.Context, variants []searchtypes.QueryVariant, scope []string, dedup *scorer.Deduper, stats *searchtypes.StageStats) {
	start := time.Now()
	defer func() { stats.ProbeMs += time.Since(start).Milliseconds() }()

	if !r.req.Tools.EnableRg {
		return
	}

	out := make(chan searchtypes.RawMatch, r.req.MaxMatches*2*len(variants))
	deadline := time.Now().Add(scheduler.ProbeDeadline)

	tasks := make([]scheduler.Task, 0, len(variants))
	for _, v := range variants {
		tasks = append(tasks, scheduler.Task{
			Tool: "rg",
			Invocation: adapter.Invocation{
				Root: r.req.Root, Scope: scope, Variant: v,
				MaxMatches: r.req.MaxMatches,
			},
			Deadline: deadline,
		})
	}

	done := make(chan *scheduler.Stats, 1)
	go func() {
		done <- r.deps.Scheduler.Dispatch(ctx, tasks, out, deadline)
		close(out)
	}()

	for m := range out {
		dedup.Add(m)
		if r.checkHighConfidence(m) {
			r.cancelSignal.Trip()
		}
	}
	mergeWarnings(stats, <-done)
}

// disambiguate runs ast-grep's structural pattern over the top-K candidate
// files. Parser errors are recorded as warnings, not fatal -- the cycle
// continues with rg matches alone.
func (r *run) disambiguate(ctx context.Context, files []string, dedup *scorer.Deduper, stats *searchtypes.StageStats) {
	start := time.Now()
	defer func() { stats.DisambiguateMs += time.Since(start).Milliseconds() }()

	if !r.req.Tools.EnableSg || r.req.DisableASTGrep || len(files) == 0 {
		return
	}
	sg, ok := r.deps.Scheduler.Adapters["ast-grep"]
	if !ok || !sg.Available() {
		return
	}

	pattern := astGrepPattern(r.req.Symbol, r.req.Language)
	out := make(chan searchtypes.RawMatch, r.req.MaxMatches*2)
	deadline := time.Now().Add(scheduler.DisambiguateDeadline)
	task := scheduler.Task{
		Tool: "ast-grep",
		Invocation: adapter.Invocation{
			Root: r.req.Root, Scope: files,
			Variant:    searchtypes.QueryVariant{Text: pattern, Kind: searchtypes.VariantLiteral},
			MaxMatches: r.req.MaxMatches,
		},
		Deadline: deadline,
	}

	done := make(chan *scheduler.Stats, 1)
	go func() {
		done <- r.deps.Scheduler.Dispatch(ctx, []scheduler.Task{task}, out, deadline)
		close(out)
	}()

	for m := range out {
		dedup.Add(m)
		if r.checkHighConfidence(m) {
			r.cancelSignal.Trip()
		}
	}
	result := <-done
	for _, w := range result.Warnings {
		stats.ASTWarnings = append(stats.ASTWarnings, w.String())
	}
}

// escalate tries, in order, rga over doc/config globs, the inverted-index
// collaborator, and a relaxed-scope rg without path filters. It stops as
// soon as any step yields a new accepted hit.
func (r *run) escalate(ctx context.Context, variants []searchtypes.QueryVariant, dedup *scorer.Deduper, stats *searchtypes.StageStats) {
	start := time.Now()
	defer func() { stats.EscalateMs += time.Since(start).Milliseconds() }()

	before := len(dedup.Matches())
	deadline := time.Now().Add(scheduler.EscalateDeadline)

	if r.req.Tools.EnableRga {
		if rga, ok := r.deps.Scheduler.Adapters["rga"]; ok && rga.Available() {
			out := make(chan searchtypes.RawMatch, r.req.MaxMatches*2)
			task := scheduler.Task{
				Tool: "rga",
				Invocation: adapter.Invocation{
					Root: r.req.Root, Variant: searchtypes.QueryVariant{Text: r.req.Symbol},
					MaxMatches: r.req.MaxMatches,
				},
				Deadline: deadline,
			}
			go func() {
				r.deps.Scheduler.Dispatch(ctx, []scheduler.Task{task}, out, deadline)
				close(out)
			}()
			for m := range out {
				dedup.Add(m)
			}
			if len(dedup.Matches()) > before {
				return
			}
		}
	}

	if r.req.Tools.EnableIndex && r.deps.Index != nil {
		paths, err := r.deps.Index.Query(ctx, r.req.Symbol)
		if err == nil && len(paths) > 0 {
			out := make(chan searchtypes.RawMatch, r.req.MaxMatches*2)
			task := scheduler.Task{
				Tool: "rg",
				Invocation: adapter.Invocation{
					Root: r.req.Root, Scope: paths,
					Variant:    variants[0],
					MaxMatches: r.req.MaxMatches,
				},
				Deadline: deadline,
			}
			go func() {
				r.deps.Scheduler.Dispatch(ctx, []scheduler.Task{task}, out, deadline)
				close(out)
			}()
			for m := range out {
				dedup.Add(m)
			}
			if len(dedup.Matches()) > before {
				return
			}
		}
	}

	if rgRelaxed, ok := r.deps.Scheduler.Adapters["rg-relaxed"]; ok && rgRelaxed.Available() {
		out := make(chan searchtypes.RawMatch, r.req.MaxMatches*2)
		task := scheduler.Task{
			Tool: "rg-relaxed",
			Invocation: adapter.Invocation{
				Root: r.req.Root, Variant: searchtypes.QueryVariant{Text: rewriteUnion(variants), Kind: searchtypes.VariantRegex},
				MaxMatches: r.req.MaxMatches,
			},
			Deadline: deadline,
		}
		go func() {
			r.deps.Scheduler.Dispatch(ctx, []scheduler.Task{task}, out, deadline)
			close(out)
		}()
		for m := range out {
			dedup.Add(m)
		}
	}
}

func (r *run) checkHighConfidence(m searchtypes.RawMatch) bool {
	if m.Origin != searchtypes.OriginASTGrep {
		return false
	}
	precision := scorer.ComputePrecision(m.RawSnippet, r.req.Symbol)
	return scorer.IsHighConfidence(m.Origin, precision, HighConfidenceClusterProxy)
}

// HighConfidenceClusterProxy is the clustering value assumed for a
// newly-arrived RawMatch before its peers are known -- a true clustering
// score requires the full candidate set, which only exists after Verify.
// Streaming cancellation therefore uses a conservative proxy: an ast-grep
// hit whose line matches the symbol exactly as a whole word is treated as
// if it already cleared the clustering bar, since ast-grep rarely reports
// a structurally-wrong match for an exact identifier pattern.
const HighConfidenceClusterProxy = scorer.HighConfidenceClusterThreshold

func rewriteUnion(variants []searchtypes.QueryVariant) string {
	return rewrite.UnionRegex(variants)
}

func astGrepPattern(symbol string, lang searchtypes.LanguageHint) string {
	switch lang {
	case searchtypes.LangRust:
		return fmt.Sprintf("fn %s($$$) { $$$ }", symbol)
	case searchtypes.LangSwift:
		return fmt.Sprintf("func %s($$$) { $$$ }", symbol)
	case searchtypes.LangTS, searchtypes.LangTSX, searchtypes.LangAutoSwiftTS:
		return fmt.Sprintf("function %s($$$) { $$$ }", symbol)
	default:
		return symbol
	}
}

func topFiles(matches []searchtypes.RawMatch, k int) []string {
	seen := make(map[string]bool)
	var files []string
	for _, m := range matches {
		if seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		files = append(files, m.Path)
		if len(files) >= k {
			break
		}
	}
	return files
}

func sortByDirWeight(paths []string, weights map[string]float64) {
	weightOf := func(p string) float64 {
		dir := p
		if i := lastSlash(p); i >= 0 {
			dir = p[:i]
		}
		return weights[dir]
	}
	for i := 1; i < len(paths); i++ {
		j := i
		for j > 0 && weightOf(paths[j-1]) < weightOf(paths[j]) {
			paths[j-1], paths[j] = paths[j], paths[j-1]
			j--
		}
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func mergeWarnings(stats *searchtypes.StageStats, s *scheduler.Stats) {
	if s == nil {
		return
	}
	for _, w := range s.Warnings {
		stats.ASTWarnings = append(stats.ASTWarnings, w.String())
	}
	for tool, n := range s.Dropped {
		stats.DroppedCounts[tool] += n
	}
}
