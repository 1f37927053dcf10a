package config

// DefaultSearchConfig returns a new SearchConfig populated with swegrep's
// built-in defaults, mirroring searchtypes' own DefaultMaxMatches /
// DefaultTimeoutSecs / DefaultConcurrency constants so the config layer and
// the core agree on what "unset" means.
//
// Callers receive a fresh copy each time; mutating the returned value does
// not affect subsequent calls.
func DefaultSearchConfig() *SearchConfig {
	return &SearchConfig{
		Root:          ".",
		MaxMatches:    20,
		TimeoutSecs:   3,
		Concurrency:   8,
		ContextBefore: 0,
		ContextAfter:  0,
		RetrieveBody:  false,
		CacheDir:      "",
		OutputFormat:  "json",
		Tools: ToolConfig{
			EnableFd:    true,
			EnableRg:    true,
			EnableSg:    true,
			EnableRga:   false,
			EnableIndex: false,
		},
	}
}
