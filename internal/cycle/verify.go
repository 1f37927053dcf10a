package cycle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/swegrep/swegrep/internal/scorer"
	"github.com/swegrep/swegrep/internal/searchtypes"
)

// pascalCaseRE matches a capitalized identifier with no underscores, the
// naming convention React/Vue/Svelte components share with Swift/Kotlin
// types -- used to flag a tsx hit as a component definition rather than a
// plain function or hook.
var pascalCaseRE = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// finalize runs the Verify stage over deduplicated RawMatches: it
// normalizes each into a Hit, scores it, materializes its context window,
// optionally retrieves its body, and rolls per-cycle aggregates (mean
// precision, density, cluster score, novelty) into stats for the reward
// formula.
func (r *run) finalize(matches []searchtypes.RawMatch, stats *searchtypes.StageStats) []searchtypes.Hit {
	if len(matches) == 0 {
		return nil
	}

	linesByFile := make(map[string][]int, len(matches))
	for _, m := range matches {
		linesByFile[m.Path] = append(linesByFile[m.Path], m.Line)
	}
	fileLineCount := make(map[string]int, len(linesByFile))
	for path := range linesByFile {
		fileLineCount[path] = countLines(filepath.Join(r.req.Root, path))
	}

	hits := make([]searchtypes.Hit, 0, len(matches))
	var sumPrecision, sumDensity, sumCluster float64
	novelCount := 0

	for _, m := range matches {
		lang := r.lang.of(m.Path)
		novel := r.cache.IsNovel(r.req.Symbol, m.Path)

		precision := scorer.ComputePrecision(m.RawSnippet, r.req.Symbol)
		density := scorer.ComputeDensity(len(linesByFile[m.Path]), fileLineCount[m.Path])
		clustering := scorer.ComputeClustering(m.Line, linesByFile[m.Path])
		score := scorer.Score(scorer.ScoreInput{
			Origin: m.Origin, Precision: precision, Density: density,
			ClusterScore: clustering, Novel: novel,
		})

		sumPrecision += precision
		sumDensity += density
		sumCluster += clustering
		if novel {
			novelCount++
		}

		label := fmt.Sprintf("%s [%s]", m.Origin, lang)
		if lang == string(searchtypes.LangTSX) && pascalCaseRE.MatchString(r.req.Symbol) {
			label += " [component]"
		}

		hit := searchtypes.Hit{
			Path:                m.Path,
			Line:                m.Line,
			Snippet:             trimSnippet(m.RawSnippet, 200),
			RawSnippet:          m.RawSnippet,
			RawSnippetTruncated: m.RawSnippetTruncated,
			SnippetLength:       len(m.RawSnippet),
			Origin:              m.Origin,
			OriginLabel:         label,
			Language:            lang,
			Score:               score,
		}

		before, after := r.req.ContextBefore, r.req.ContextAfter
		if r.req.AutoContext && m.RawSnippetTruncated {
			before, after = searchtypes.TruncatedContextBefore, searchtypes.TruncatedContextAfter
		}
		if err := scorer.ExpandContext(r.req.Root, &hit, before, after); err != nil {
			hit.ContextStart, hit.ContextEnd = hit.Line, hit.Line
		}

		if scorer.ShouldRetrieveBody(r.req, hit) {
			if warn := scorer.RetrieveBody(r.req.Root, &hit); warn != nil {
				stats.ASTWarnings = append(stats.ASTWarnings, warn.String())
			}
		}

		langMetrics := stats.LanguageMetrics[lang]
		langMetrics.Hits++
		langMetrics.Density = (langMetrics.Density*float64(langMetrics.Hits-1) + density) / float64(langMetrics.Hits)
		stats.LanguageMetrics[lang] = langMetrics

		hits = append(hits, hit)
	}

	n := float64(len(matches))
	stats.Precision = round4(sumPrecision / n)
	stats.Density = round4(sumDensity / n)
	stats.ClusterScore = round4(sumCluster / n)
	stats.Novelty = round4(float64(novelCount) / n)
	r.reward = scorer.Reward(stats.Precision, stats.Density, stats.ClusterScore, stats.Novelty)

	return hits
}

func round4(v float64) float64 {
	const scale = 10000.0
	return float64(int64(v*scale+0.5)) / scale
}

func trimSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// countLines counts the lines in path, returning 0 if the file can't be
// read -- a missing or unreadable file simply yields density 0, not an
// error, since Verify must never fail the cycle over a single bad file.
func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		count++
	}
	return count
}
