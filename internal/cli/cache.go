package cli

import (
	"encoding/json"
	"fmt"

	"github.com/swegrep/swegrep/internal/clierr"
	"github.com/swegrep/swegrep/internal/hintcache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the Hint Cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the Hint Cache directory and its directory weights as JSON",
	RunE:  runCacheShow,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted Hint Cache state",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheShowCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheDirForCLI(cmd *cobra.Command) (string, error) {
	rc, err := resolveForCLI(cmd)
	if err != nil {
		return "", err
	}
	dir := rc.Config.CacheDir
	if dir == "" {
		dir = flagValues.Dir + "/.swe-grep-cache"
	}
	return dir, nil
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	dir, err := cacheDirForCLI(cmd)
	if err != nil {
		return err
	}
	c := hintcache.Open(dir)
	if err := c.LoadError(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Dir     string             `json:"dir"`
		Weights map[string]float64 `json:"seeded_dir_weights"`
	}{Dir: dir, Weights: c.SeededDirWeights()})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	dir, err := cacheDirForCLI(cmd)
	if err != nil {
		return err
	}
	c := hintcache.Open(dir)
	if err := c.Clear(); err != nil {
		return clierr.New("clearing hint cache", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", dir)
	return nil
}
