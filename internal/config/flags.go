package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// FlagValues collects all parsed global flag values from the CLI. This
// struct is populated by BindFlags and passed to Resolve's CLIFlags layer
// and to searchtypes.SearchRequest construction.
type FlagValues struct {
	Dir            string
	Language       string
	MaxMatches     int
	TimeoutSecs    int
	Concurrency    int
	CacheDir       string
	DisableASTGrep bool
	OutputFormat   string
	Verbose        bool
	Quiet          bool
	ClearCache     bool
	IndexPlugin    string
}

// BindFlags registers all global persistent flags on the given Cobra command
// and returns a FlagValues pointer that will be populated when the command
// is executed. Callers should access the returned struct after flag parsing.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&fv.Dir, "dir", "d", ".", "repository root to search")
	pf.StringVarP(&fv.Language, "language", "l", "", "language hint: rust, swift, ts, tsx, auto-swift-ts")
	pf.IntVar(&fv.MaxMatches, "max-matches", 0, "cap on returned hits (0 uses the resolved config default)")
	pf.IntVar(&fv.TimeoutSecs, "timeout-secs", 0, "Search Cycle wall-clock budget in seconds (0 uses the resolved config default)")
	pf.IntVar(&fv.Concurrency, "concurrency", 0, "Scheduler's bounded adapter concurrency (0 uses the resolved config default)")
	pf.StringVar(&fv.CacheDir, "cache-dir", "", "Hint Cache directory override")
	pf.BoolVar(&fv.DisableASTGrep, "disable-ast-grep", false, "disable the ast-grep adapter")
	pf.StringVar(&fv.OutputFormat, "output", "", "render the CycleSummary as json or table")
	pf.BoolVarP(&fv.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&fv.Quiet, "quiet", "q", false, "suppress all output except errors")
	pf.BoolVar(&fv.ClearCache, "clear-cache", false, "clear the Hint Cache before running")
	pf.StringVar(&fv.IndexPlugin, "index-plugin", "", "path to a WASM inverted-index collaborator module")

	return fv
}

// ValidateFlags checks the parsed flag values for correctness and mutual
// exclusion. Call this from PersistentPreRunE after Cobra has parsed the
// flags.
func ValidateFlags(fv *FlagValues) error {
	if fv.Verbose && fv.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	info, err := os.Stat(fv.Dir)
	if err != nil {
		return fmt.Errorf("--dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--dir: %s is not a directory", fv.Dir)
	}

	if fv.OutputFormat != "" && fv.OutputFormat != "json" && fv.OutputFormat != "table" {
		return fmt.Errorf("--output: invalid value %q (allowed: json, table)", fv.OutputFormat)
	}

	return nil
}

// CLIFlagsMap converts the subset of fv that was explicitly set on cmd into
// a flat map for config.Resolve's CLIFlags layer -- a flag left at its zero
// value must not shadow a lower layer's value.
func CLIFlagsMap(fv *FlagValues, cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	set := func(name string, key string, value any) {
		if cmd.Flags().Changed(name) {
			out[key] = value
		}
	}
	set("dir", "root", fv.Dir)
	set("max-matches", "max_matches", fv.MaxMatches)
	set("timeout-secs", "timeout_secs", fv.TimeoutSecs)
	set("concurrency", "concurrency", fv.Concurrency)
	set("cache-dir", "cache_dir", fv.CacheDir)
	set("disable-ast-grep", "disable_ast_grep", fv.DisableASTGrep)
	set("output", "output_format", fv.OutputFormat)
	return out
}

// NormalizeLanguage lowercases and trims a --language flag value.
func NormalizeLanguage(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
