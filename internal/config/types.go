package config

// SearchConfig is the on-disk analogue of a SearchRequest's tunables: the
// settings resolved once per invocation from config.toml/env/flags before a
// symbol is even known. It holds every tunable from searchtypes.SearchRequest
// except Symbol and Language, which are supplied per search.
type SearchConfig struct {
	// Root is the default repository root to search, when --dir isn't given.
	Root string `toml:"root"`

	// MaxMatches caps the number of hits returned per cycle.
	MaxMatches int `toml:"max_matches"`

	// TimeoutSecs is the Search Cycle's wall-clock budget.
	TimeoutSecs int `toml:"timeout_secs"`

	// Concurrency bounds the Scheduler's parallel adapter invocations.
	Concurrency int `toml:"concurrency"`

	// ContextBefore/ContextAfter set the Verify stage's context window. When
	// both are zero the window is automatic: 2 lines before and 4 after, or 4
	// and 4 when Probe reported a truncated snippet.
	ContextBefore int `toml:"context_before"`
	ContextAfter  int `toml:"context_after"`

	// RetrieveBody enables body retrieval for every hit, not just the
	// languages ShouldRetrieveBody selects by default.
	RetrieveBody bool `toml:"retrieve_body"`

	// CacheDir overrides the Hint Cache's persistence directory.
	CacheDir string `toml:"cache_dir"`

	// DisableASTGrep disables the Disambiguate stage and makes every symbol
	// ineligible for the Literal Fast Path, since a policy may forbid
	// shelling out to ast-grep in some environments.
	DisableASTGrep bool `toml:"disable_ast_grep"`

	// Tools toggles each adapter independently.
	Tools ToolConfig `toml:"tools"`

	// OutputFormat selects how `swegrep search` renders its CycleSummary:
	// "json" or "table".
	OutputFormat string `toml:"output_format"`
}

// ToolConfig mirrors searchtypes.ToolFlags as a TOML-friendly struct.
type ToolConfig struct {
	EnableFd    bool `toml:"enable_fd"`
	EnableRg    bool `toml:"enable_rg"`
	EnableSg    bool `toml:"enable_sg"`
	EnableRga   bool `toml:"enable_rga"`
	EnableIndex bool `toml:"enable_index"`
}
