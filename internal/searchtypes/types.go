// Package searchtypes defines the central data types shared across every
// stage of the Search Cycle: request input, the query variants derived from
// it, the raw and normalized hits produced by tool adapters, the persisted
// hint cache shape, and the final cycle summary.
//
// This package has minimal external dependencies -- it holds data and the
// small validation helpers that keep that data self-consistent. Business
// logic (scoring, scheduling, rewriting) lives in the packages that consume
// these types.
package searchtypes

import "time"

// LanguageHint narrows query rewriting and Disambiguate patterns to one
// language family. The zero value means "no hint" and all rewrite rules
// apply unfiltered.
type LanguageHint string

const (
	LangRust         LanguageHint = "rust"
	LangSwift        LanguageHint = "swift"
	LangTS           LanguageHint = "ts"
	LangTSX          LanguageHint = "tsx"
	LangAutoSwiftTS  LanguageHint = "auto-swift-ts"
	LangUnspecified  LanguageHint = ""
)

// Default tunables for a SearchRequest, applied by Normalize when the
// corresponding field is left at its zero value.
const (
	DefaultMaxMatches     = 20
	DefaultTimeoutSecs    = 3
	DefaultConcurrency    = 8
	DefaultContextBefore  = 2
	DefaultContextAfter   = 4
	TruncatedContextBefore = 4
	TruncatedContextAfter  = 4
	MaxBodyBytes          = 512 * 1024
)

// ToolFlags controls which external tool adapters participate in a cycle.
// Normalize treats the zero value as unset and replaces it with
// DefaultToolFlags, which enables fd, rg, and ast-grep and disables rga and
// the inverted index, matching the defaults config.DefaultSearchConfig sets.
type ToolFlags struct {
	EnableFd    bool
	EnableRg    bool
	EnableSg    bool
	EnableRga   bool
	EnableIndex bool
}

// DefaultToolFlags returns the flag set used when a caller supplies none.
func DefaultToolFlags() ToolFlags {
	return ToolFlags{EnableFd: true, EnableRg: true, EnableSg: true}
}

// SearchRequest is the single entry point to the Search Cycle. All fields
// are immutable for the lifetime of one cycle.
type SearchRequest struct {
	Symbol            string
	Root              string
	Language          LanguageHint
	Tools             ToolFlags
	MaxMatches        int
	ContextBefore     int
	ContextAfter      int
	AutoContext       bool // true when ContextBefore/After were left at their zero value
	TimeoutSecs       int
	Concurrency       int
	RetrieveBody      bool
	CacheDir          string
	DisableASTGrep    bool // policy override disabling the ast-grep-dependent stages
}

// Normalize returns a copy of req with every zero-valued tunable replaced by
// its documented default. The returned request is safe to execute directly.
func (req SearchRequest) Normalize() SearchRequest {
	out := req
	if out.MaxMatches <= 0 {
		out.MaxMatches = DefaultMaxMatches
	}
	if out.TimeoutSecs <= 0 {
		out.TimeoutSecs = DefaultTimeoutSecs
	}
	if out.Concurrency <= 0 {
		out.Concurrency = DefaultConcurrency
	}
	if out.ContextBefore <= 0 && out.ContextAfter <= 0 {
		out.AutoContext = true
		out.ContextBefore = DefaultContextBefore
		out.ContextAfter = DefaultContextAfter
	}
	if out.Tools == (ToolFlags{}) {
		out.Tools = DefaultToolFlags()
	}
	if out.CacheDir == "" {
		out.CacheDir = out.Root + "/.swe-grep-cache"
	}
	return out
}

// Timeout returns the request's wall-clock budget as a time.Duration.
func (req SearchRequest) Timeout() time.Duration {
	return time.Duration(req.TimeoutSecs) * time.Second
}

// VariantKind classifies a QueryVariant by how it was derived from the
// original symbol.
type VariantKind string

const (
	VariantLiteral   VariantKind = "literal"
	VariantQualified VariantKind = "qualified"
	VariantReceiver  VariantKind = "receiver"
	VariantRegex     VariantKind = "regex"
	VariantDocs      VariantKind = "docs"
)

// QueryVariant is one textual rewrite of a symbol, ordered by precedence
// (lower values are tried first and are dispatched first by the scheduler).
type QueryVariant struct {
	Text       string
	Kind       VariantKind
	Precedence int
}

// ToolInvocation is one scheduled unit of external work: a single adapter
// call bound to a deadline and a shared cancellation signal.
type ToolInvocation struct {
	Tool     string
	Args     []string
	Variant  QueryVariant
	Scope    []string // path scope, empty means the whole root
	Deadline time.Time
}

// Origin labels identify which tool+scope produced a RawMatch or Hit. Trust
// ordering among these is encoded in OriginTrust.
const (
	OriginASTGrep   = "ast-grep"
	OriginRgScoped  = "rg-scoped"
	OriginRgRelaxed = "rg-relaxed"
	OriginRga       = "rga"
	OriginFd        = "fd"
)

// OriginTrust ranks an origin's trustworthiness; higher wins a dedupe
// collision. Unknown origins rank below every known one.
func OriginTrust(origin string) int {
	switch origin {
	case OriginASTGrep:
		return 5
	case OriginRgScoped:
		return 4
	case OriginRgRelaxed:
		return 3
	case OriginRga:
		return 2
	case OriginFd:
		return 1
	default:
		return 0
	}
}

// RawMatch is one hit as reported by a single tool adapter, before
// normalization, deduplication, or scoring.
type RawMatch struct {
	Path                string
	Line                int // 1-indexed
	ByteStart           int
	ByteEnd             int
	Origin              string
	Language            string
	RawSnippet          string
	RawSnippetTruncated bool
}

// Hit is a normalized, scored match ready for inclusion in a CycleSummary.
type Hit struct {
	Path                string  `json:"path"`
	Line                int     `json:"line"`
	Snippet             string  `json:"snippet"`
	RawSnippet          string  `json:"raw_snippet"`
	RawSnippetTruncated bool    `json:"raw_snippet_truncated"`
	SnippetLength       int     `json:"snippet_length"`
	Origin              string  `json:"origin"`
	OriginLabel         string  `json:"origin_label"`
	Language            string  `json:"language"`
	ExpandedSnippet     string  `json:"expanded_snippet"`
	ContextStart        int     `json:"context_start"`
	ContextEnd          int     `json:"context_end"`
	AutoExpandedContext bool    `json:"auto_expanded_context"`
	Body                string  `json:"body,omitempty"`
	BodyRetrieved       bool    `json:"body_retrieved"`
	BodyTokenCount      int     `json:"body_token_count,omitempty"`
	Score               float64 `json:"score"`
}

// Key returns the (path, line) identity used for deduplication and
// invariant checks.
func (h Hit) Key() string {
	return h.Path + ":" + itoa(h.Line)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Hint is one symbol-to-path association recorded by a prior cycle.
type Hint struct {
	Symbol    string    `json:"symbol"`
	Path      string    `json:"path"`
	LastSeen  time.Time `json:"last_seen"`
	HitCount  int       `json:"hit_count"`
	ScoreEWMA float64   `json:"score_ewma"`
}

// DirHint is a directory-level sibling hint: a directory whose files have
// previously produced accepted hits, biasing future Discover scopes.
type DirHint struct {
	Dir    string  `json:"dir"`
	Weight float64 `json:"weight"`
}

// CacheState is the full persisted shape of the Hint Cache, serialized as a
// single JSON document at <cache_dir>/state.json.
type CacheState struct {
	Version int                  `json:"version"`
	Symbols map[string][]Hint    `json:"symbols"`
	Dirs    map[string]float64   `json:"dirs"`
}

// NewCacheState returns an empty, ready-to-use CacheState.
func NewCacheState() *CacheState {
	return &CacheState{
		Version: 1,
		Symbols: make(map[string][]Hint),
		Dirs:    make(map[string]float64),
	}
}

// LanguageMetrics captures per-language counters surfaced in StageStats,
// e.g. how many hits each language family contributed.
type LanguageMetrics struct {
	Hits    int     `json:"hits"`
	Density float64 `json:"density"`
}

// StageStats captures per-stage timings and the reward components computed
// by the Scorer for one cycle.
type StageStats struct {
	DiscoverMs      int64                      `json:"discover_ms"`
	ProbeMs         int64                      `json:"probe_ms"`
	DisambiguateMs  int64                      `json:"disambiguate_ms"`
	EscalateMs      int64                      `json:"escalate_ms"`
	VerifyMs        int64                      `json:"verify_ms"`
	CycleLatencyMs  int64                      `json:"cycle_latency_ms"`
	Precision       float64                    `json:"precision"`
	Density         float64                    `json:"density"`
	ClusterScore    float64                    `json:"cluster_score"`
	Novelty         float64                    `json:"novelty"`
	Reward          float64                    `json:"reward"`
	LanguageMetrics map[string]LanguageMetrics `json:"language_metrics"`
	FastPathTaken   bool                       `json:"fast_path_taken"`
	ASTWarnings     []string                   `json:"ast_warnings,omitempty"`
	DroppedCounts   map[string]int             `json:"dropped_counts,omitempty"`
}

// StartupStats covers process-lifetime, once-per-run costs that are not
// part of any single stage's budget.
//
// cache_ms times the Hint Cache load inside cycle.Run. That load happens
// only when Deps.Cache is nil; when the caller passes an already-opened
// cache, as the CLI and the MCP server do, cache_ms covers only that
// hand-off and is normally 0.
type StartupStats struct {
	CacheMs int64 `json:"cache_ms"`
}

// CycleSummary is the Search Cycle's sole output: a JSON document with
// stable field names so downstream tooling can rely on its shape across
// releases.
type CycleSummary struct {
	Cycle        string       `json:"cycle"`
	Symbol       string       `json:"symbol"`
	Queries      []string     `json:"queries"`
	TopHits      []Hit        `json:"top_hits"`
	Deduped      int          `json:"deduped"`
	NextActions  []string     `json:"next_actions"`
	Hints        []string     `json:"hints"`
	StageStats   StageStats   `json:"stage_stats"`
	Reward       float64      `json:"reward"`
	StartupStats StartupStats `json:"startup_stats"`
	Fatal        string       `json:"fatal,omitempty"`
}
