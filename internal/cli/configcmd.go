package cli

import (
	"github.com/swegrep/swegrep/internal/clierr"
	"github.com/swegrep/swegrep/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect resolved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the fully resolved configuration as JSON",
	RunE:  runConfigShow,
}

var configExplainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Print each configuration field and the layer that set it",
	RunE:  runConfigExplain,
}

func init() {
	configCmd.AddCommand(configShowCmd, configExplainCmd)
	rootCmd.AddCommand(configCmd)
}

func resolveForCLI(cmd *cobra.Command) (*config.ResolvedConfig, error) {
	fv := flagValues
	rc, err := config.Resolve(config.ResolveOptions{
		TargetDir: fv.Dir,
		CLIFlags:  config.CLIFlagsMap(fv, cmd),
	})
	if err != nil {
		return nil, clierr.New("resolving configuration", err)
	}
	if errs := config.Validate(rc.Config); len(errs) > 0 {
		for _, e := range errs {
			if e.Severity == "error" {
				return nil, clierr.New("invalid configuration", e)
			}
		}
	}
	return rc, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	rc, err := resolveForCLI(cmd)
	if err != nil {
		return err
	}
	return config.Show(cmd.OutOrStdout(), rc)
}

func runConfigExplain(cmd *cobra.Command, args []string) error {
	rc, err := resolveForCLI(cmd)
	if err != nil {
		return err
	}
	return config.Explain(cmd.OutOrStdout(), rc)
}
