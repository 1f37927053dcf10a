package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swegrep/swegrep/internal/adapter"
	"github.com/swegrep/swegrep/internal/clierr"
	"github.com/swegrep/swegrep/internal/config"
	"github.com/swegrep/swegrep/internal/cycle"
	"github.com/swegrep/swegrep/internal/hintcache"
	"github.com/swegrep/swegrep/internal/indexplugin"
	"github.com/swegrep/swegrep/internal/scheduler"
	"github.com/swegrep/swegrep/internal/searchtypes"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <symbol>",
	Short: "Run one Search Cycle for a symbol",
	Long: `search resolves configuration from defaults, config files,
environment variables, and flags (in that precedence order), builds a
SearchRequest, and runs it through the Stage Pipeline. The resulting
CycleSummary is rendered to stdout as JSON or a table.

Running 'swegrep' with no subcommand is equivalent to 'swegrep search'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.Args = cobra.MaximumNArgs(1)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runSearch(cmd, args)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	fv := flagValues
	symbol := args[0]

	rc, err := config.Resolve(config.ResolveOptions{
		TargetDir: fv.Dir,
		CLIFlags:  config.CLIFlagsMap(fv, cmd),
	})
	if err != nil {
		return clierr.New("resolving configuration", err)
	}
	sc := rc.Config

	if fv.ClearCache {
		cacheDir := sc.CacheDir
		if cacheDir == "" {
			cacheDir = fv.Dir + "/.swe-grep-cache"
		}
		c := hintcache.Open(cacheDir)
		if err := c.Clear(); err != nil {
			return clierr.New("clearing hint cache", err)
		}
	}

	req := searchtypes.SearchRequest{
		Symbol:         symbol,
		Root:           fv.Dir,
		Language:       searchtypes.LanguageHint(config.NormalizeLanguage(fv.Language)),
		Tools:          toolFlags(sc),
		MaxMatches:     sc.MaxMatches,
		ContextBefore:  sc.ContextBefore,
		ContextAfter:   sc.ContextAfter,
		TimeoutSecs:    sc.TimeoutSecs,
		Concurrency:    sc.Concurrency,
		RetrieveBody:   sc.RetrieveBody,
		CacheDir:       sc.CacheDir,
		DisableASTGrep: sc.DisableASTGrep || fv.DisableASTGrep,
	}.Normalize()

	ctx, cancel := context.WithTimeout(cmd.Context(), req.Timeout())
	defer cancel()

	deps, cache := buildDeps(req)
	if fv.IndexPlugin != "" {
		plugin, err := indexplugin.Load(ctx, fv.IndexPlugin)
		if err != nil {
			deps.Logger.Warn("index plugin unavailable, skipping", "path", fv.IndexPlugin, "error", err)
		} else {
			defer func() { _ = plugin.Close(ctx) }()
			deps.Index = plugin
		}
	}
	defer func() {
		if err := cache.Flush(); err != nil {
			deps.Logger.Warn("flushing hint cache failed", "error", err)
		}
	}()

	summary, err := cycle.Run(ctx, req, deps)
	if err != nil {
		return clierr.New("invalid search request", err)
	}

	format := sc.OutputFormat
	if fv.OutputFormat != "" {
		format = fv.OutputFormat
	}
	return renderSummary(cmd, summary, format)
}

func toolFlags(sc *config.SearchConfig) searchtypes.ToolFlags {
	return searchtypes.ToolFlags{
		EnableFd:    sc.Tools.EnableFd,
		EnableRg:    sc.Tools.EnableRg,
		EnableSg:    sc.Tools.EnableSg,
		EnableRga:   sc.Tools.EnableRga,
		EnableIndex: sc.Tools.EnableIndex,
	}
}

// buildDeps assembles the Stage Pipeline's collaborators for one cycle:
// a Scheduler with every tool adapter registered (Available() lets stages
// skip ones whose binary is missing) and the repo's Hint Cache.
func buildDeps(req searchtypes.SearchRequest) (cycle.Deps, *hintcache.Cache) {
	adapters := map[string]adapter.Adapter{
		"fd":         adapter.NewFd(),
		"rg":         adapter.NewRg(true),
		"rg-relaxed": adapter.NewRg(false),
		"ast-grep":   adapter.NewAstGrep(),
		"rga":        adapter.NewRga(),
	}

	cache := hintcache.Open(req.CacheDir)
	logger := config.NewLogger("cli")

	deps := cycle.Deps{
		Scheduler: scheduler.New(req.Concurrency, adapters),
		Cache:     cache,
		Logger:    logger,
	}
	return deps, cache
}

func renderSummary(cmd *cobra.Command, summary *searchtypes.CycleSummary, format string) error {
	out := cmd.OutOrStdout()
	if format == "table" {
		return renderTable(out, summary)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func renderTable(w interface{ Write([]byte) (int, error) }, s *searchtypes.CycleSummary) error {
	if _, err := fmt.Fprintf(w, "%-8s %-60s %-6s %s\n", "SCORE", "PATH", "LINE", "ORIGIN"); err != nil {
		return err
	}
	for _, hit := range s.TopHits {
		if _, err := fmt.Fprintf(w, "%-8.3f %-60s %-6d %s\n", hit.Score, hit.Path, hit.Line, hit.Origin); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d hits, %d deduped, %s elapsed\n", len(s.TopHits), s.Deduped, time.Duration(s.StageStats.CycleLatencyMs)*time.Millisecond)
	return err
}
