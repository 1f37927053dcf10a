// Package mcpserver exposes the Stage Pipeline as an MCP tool, a second
// thin transport alongside internal/cli. It carries no search logic of its
// own: every call is a direct delegation to cycle.Run.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/swegrep/swegrep/internal/cycle"
	"github.com/swegrep/swegrep/internal/searchtypes"
)

// SearchArgs is the search_symbol tool's input schema.
type SearchArgs struct {
	Symbol         string `json:"symbol" jsonschema:"the identifier to search for"`
	Root           string `json:"root,omitempty" jsonschema:"repository root, defaults to the server's working directory"`
	Language       string `json:"language,omitempty" jsonschema:"language hint: rust, swift, ts, tsx, auto-swift-ts"`
	MaxMatches     int    `json:"max_matches,omitempty"`
	DisableASTGrep bool   `json:"disable_ast_grep,omitempty"`
}

// Server wraps an mcp.Server preconfigured with the search_symbol tool.
type Server struct {
	mcp    *mcp.Server
	deps   cycle.Deps
	logger *slog.Logger
}

// New builds the MCP server, registering search_symbol against deps.
func New(deps cycle.Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcpserver")

	impl := &mcp.Implementation{Name: "swegrep", Version: "0.1.0"}
	s := &Server{mcp: mcp.NewServer(impl, nil), deps: deps, logger: logger}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_symbol",
		Description: "Run one deterministic Search Cycle for a code symbol and return its CycleSummary.",
	}, s.handleSearch)

	return s
}

// Run serves MCP requests over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, *searchtypes.CycleSummary, error) {
	if args.Symbol == "" {
		return nil, nil, fmt.Errorf("search_symbol: symbol is required")
	}
	root := args.Root
	if root == "" {
		root = "."
	}

	req := searchtypes.SearchRequest{
		Symbol:         args.Symbol,
		Root:           root,
		Language:       searchtypes.LanguageHint(args.Language),
		MaxMatches:     args.MaxMatches,
		DisableASTGrep: args.DisableASTGrep,
	}

	summary, err := cycle.Run(ctx, req, s.deps)
	if err != nil {
		s.logger.Error("search_symbol failed", "symbol", args.Symbol, "error", err)
		return nil, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("cycle %s: %d hit(s) for %q", summary.Cycle, len(summary.TopHits), args.Symbol)}},
	}, summary, nil
}
