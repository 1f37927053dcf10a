package cli

import (
	"github.com/swegrep/swegrep/internal/clierr"
	"github.com/swegrep/swegrep/internal/config"
	"github.com/swegrep/swegrep/internal/mcpserver"
	"github.com/swegrep/swegrep/internal/searchtypes"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run swegrep as an MCP stdio server exposing search_symbol",
	Long: `mcp starts a Model Context Protocol server over stdio, exposing one
tool -- search_symbol -- that runs a full Search Cycle and returns its
CycleSummary. Intended to be launched by an MCP-aware client, not a human.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	rc, err := resolveForCLI(cmd)
	if err != nil {
		return err
	}
	sc := rc.Config

	req := searchtypes.SearchRequest{
		Root:           flagValues.Dir,
		Tools:          toolFlags(sc),
		MaxMatches:     sc.MaxMatches,
		TimeoutSecs:    sc.TimeoutSecs,
		Concurrency:    sc.Concurrency,
		RetrieveBody:   sc.RetrieveBody,
		CacheDir:       sc.CacheDir,
		DisableASTGrep: sc.DisableASTGrep,
	}
	deps, cache := buildDeps(req.Normalize())
	defer cache.Flush()

	srv := mcpserver.New(deps, config.NewLogger("mcp"))
	if err := srv.Run(cmd.Context()); err != nil {
		return clierr.New("mcp server", err)
	}
	return nil
}
