package config

import (
	"os"
	"strconv"
)

// Environment variable name constants for SWEGREP_ prefixed overrides.
const (
	EnvRoot           = "SWEGREP_ROOT"
	EnvMaxMatches     = "SWEGREP_MAX_MATCHES"
	EnvTimeoutSecs    = "SWEGREP_TIMEOUT_SECS"
	EnvConcurrency    = "SWEGREP_CONCURRENCY"
	EnvCacheDir       = "SWEGREP_CACHE_DIR"
	EnvDisableASTGrep = "SWEGREP_DISABLE_AST_GREP"
	EnvOutputFormat   = "SWEGREP_OUTPUT_FORMAT"
	EnvLogFormat      = "SWEGREP_LOG_FORMAT" // not a SearchConfig field, read directly by config.ResolveLogFormat
)

// buildEnvMap reads SWEGREP_* environment variables and returns a flat map
// suitable for use with a koanf confmap provider. Only non-empty env vars
// that parse successfully are included; a malformed numeric/boolean value is
// silently skipped so one bad env var doesn't block the whole resolution
// pipeline.
func buildEnvMap() map[string]any {
	m := make(map[string]any)

	if v := os.Getenv(EnvRoot); v != "" {
		m["root"] = v
	}
	if v := os.Getenv(EnvMaxMatches); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m["max_matches"] = n
		}
	}
	if v := os.Getenv(EnvTimeoutSecs); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m["timeout_secs"] = n
		}
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			m["concurrency"] = n
		}
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		m["cache_dir"] = v
	}
	if v := os.Getenv(EnvDisableASTGrep); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			m["disable_ast_grep"] = b
		}
	}
	if v := os.Getenv(EnvOutputFormat); v != "" {
		m["output_format"] = v
	}

	return m
}
