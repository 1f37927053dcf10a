// Package cli implements the Cobra command hierarchy for the swegrep CLI
// tool. The root command defined here is the entry point for all
// subcommands and handles cross-cutting concerns like logging
// initialization and error handling.
package cli

import (
	"errors"
	"log/slog"

	"github.com/swegrep/swegrep/internal/clierr"
	"github.com/swegrep/swegrep/internal/config"
	"github.com/spf13/cobra"
)

// flagValues holds the parsed global flag values, populated by
// config.BindFlags during command initialization and validated in
// PersistentPreRunE.
var flagValues *config.FlagValues

var rootCmd = &cobra.Command{
	Use:   "swegrep",
	Short: "Deterministic sub-second symbol search.",
	Long: `swegrep runs a bounded-latency Search Cycle over a repository: a
Query Rewriter expands a symbol into AST-aware variants, a Scheduler fans
them out across fd, ripgrep, and ast-grep under a wall-clock budget, and a
Scorer ranks and deduplicates the results into a CycleSummary.

Running 'swegrep' with no subcommand is equivalent to 'swegrep search'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateFlags(flagValues); err != nil {
			return err
		}

		level := config.ResolveLogLevel(flagValues.Verbose, flagValues.Quiet)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)

		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
}

func init() {
	flagValues = config.BindFlags(rootCmd)

	rootCmd.RegisterFlagCompletionFunc("output", completeOutput)
	rootCmd.RegisterFlagCompletionFunc("language", completeLanguage)
}

func completeOutput(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"json", "table"}, cobra.ShellCompDirectiveNoFileComp
}

func completeLanguage(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"rust", "swift", "ts", "tsx", "auto-swift-ts"}, cobra.ShellCompDirectiveNoFileComp
}

// Execute runs the root command and returns an appropriate exit code.
// If the error is a *clierr.Error, its Code is used. Generic errors return
// ExitError (1). Nil returns ExitSuccess (0).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		return extractExitCode(err)
	}
	return int(clierr.ExitSuccess)
}

// extractExitCode determines the process exit code from an error. If the
// error is a *clierr.Error, its Code field is used. Otherwise ExitError (1)
// is returned for any non-nil error.
func extractExitCode(err error) int {
	if err == nil {
		return int(clierr.ExitSuccess)
	}
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return int(clierr.ExitError)
}

// RootCmd returns the root cobra.Command for use in testing and subcommand
// registration.
func RootCmd() *cobra.Command {
	return rootCmd
}

// GlobalFlags returns the parsed global flag values. This is available
// after PersistentPreRunE has run. Subcommands use this to access shared
// configuration.
func GlobalFlags() *config.FlagValues {
	return flagValues
}
