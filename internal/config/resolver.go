package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/providers/confmap"
	koanf "github.com/knadh/koanf/v2"
)

// ResolveOptions configures the multi-source configuration resolution.
type ResolveOptions struct {
	// TargetDir is the directory to search for .swegrep.toml. Defaults to
	// "." if empty.
	TargetDir string

	// GlobalConfigPath overrides the default ~/.config/swegrep/config.toml.
	// Useful for testing.
	GlobalConfigPath string

	// CLIFlags holds explicit CLI flag overrides (highest precedence). Keys
	// are flat SearchConfig field names: "max_matches", "timeout_secs", etc.
	CLIFlags map[string]any
}

// ResolvedConfig is the result of multi-source configuration resolution.
type ResolvedConfig struct {
	Config  *SearchConfig
	Sources SourceMap
}

// Resolve runs the 5-layer configuration resolution pipeline, each layer
// overriding the one before it:
//  1. Built-in defaults
//  2. Global config (~/.config/swegrep/config.toml)
//  3. Repository config (.swegrep.toml in TargetDir)
//  4. Environment variables (SWEGREP_* prefix)
//  5. CLI flags (highest precedence)
//
// Missing config files are silently ignored. Invalid TOML returns an error.
func Resolve(opts ResolveOptions) (*ResolvedConfig, error) {
	k := koanf.New(".")
	sources := make(SourceMap)

	if err := loadLayer(k, configToFlatMap(DefaultSearchConfig()), sources, SourceDefault); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			globalPath = filepath.Join(home, ".config", "swegrep", "config.toml")
		}
	}
	if globalPath != "" {
		if err := loadFileLayer(k, globalPath, sources, SourceGlobal); err != nil {
			return nil, err
		}
	}

	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = "."
	}
	repoConfigPath := filepath.Join(targetDir, ".swegrep.toml")
	if err := loadFileLayer(k, repoConfigPath, sources, SourceRepo); err != nil {
		return nil, err
	}

	if envMap := buildEnvMap(); len(envMap) > 0 {
		if err := loadLayer(k, envMap, sources, SourceEnv); err != nil {
			return nil, fmt.Errorf("loading env vars: %w", err)
		}
	}

	if len(opts.CLIFlags) > 0 {
		if err := loadLayer(k, opts.CLIFlags, sources, SourceFlag); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	finalConfig := flatMapToConfig(k)
	slog.Debug("config resolved",
		"root", finalConfig.Root,
		"max_matches", finalConfig.MaxMatches,
		"timeout_secs", finalConfig.TimeoutSecs,
	)

	return &ResolvedConfig{Config: finalConfig, Sources: sources}, nil
}

// loadFileLayer parses a TOML config file and merges only the keys present
// in it into k. A missing file is silently skipped.
func loadFileLayer(k *koanf.Koanf, path string, sources SourceMap, src Source) error {
	flat, err := extractFlat(path)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}
	if flat == nil {
		return nil
	}
	slog.Debug("loading config layer", "path", path, "source", src.String())
	return loadLayer(k, flat, sources, src)
}

// extractFlat parses path into a raw map and flattens only its present keys,
// so a file that sets only `max_matches` doesn't clobber other layers'
// values for every other field. Returns nil, nil if the file doesn't exist.
func extractFlat(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return flattenRaw(raw), nil
}

func flattenRaw(raw map[string]interface{}) map[string]any {
	flat := make(map[string]any)

	for _, key := range []string{"root", "cache_dir", "output_format"} {
		if v, ok := raw[key]; ok {
			flat[key] = v
		}
	}
	for _, key := range []string{"max_matches", "timeout_secs", "concurrency", "context_before", "context_after"} {
		if v, ok := raw[key]; ok {
			flat[key] = toInt(v)
		}
	}
	for _, key := range []string{"retrieve_body", "disable_ast_grep"} {
		if v, ok := raw[key]; ok {
			flat[key] = v
		}
	}
	if toolsRaw, ok := raw["tools"].(map[string]interface{}); ok {
		for _, key := range []string{"enable_fd", "enable_rg", "enable_sg", "enable_rga", "enable_index"} {
			if v, ok := toolsRaw[key]; ok {
				flat["tools."+key] = v
			}
		}
	}
	return flat
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// loadLayer merges a flat map into k and marks every key in the map as
// originating from src, so that even a value matching an earlier layer's
// value is attributed to the layer that most recently set it.
func loadLayer(k *koanf.Koanf, m map[string]any, sources SourceMap, src Source) error {
	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return fmt.Errorf("merge layer %s: %w", src.String(), err)
	}
	for key := range m {
		sources[key] = src
	}
	return nil
}

// configToFlatMap converts a SearchConfig to a flat map for koanf's confmap
// provider. Every field is included -- used only for the defaults layer,
// where every field carries an authoritative value.
func configToFlatMap(c *SearchConfig) map[string]any {
	return map[string]any{
		"root":             c.Root,
		"max_matches":      c.MaxMatches,
		"timeout_secs":     c.TimeoutSecs,
		"concurrency":      c.Concurrency,
		"context_before":   c.ContextBefore,
		"context_after":    c.ContextAfter,
		"retrieve_body":    c.RetrieveBody,
		"cache_dir":        c.CacheDir,
		"disable_ast_grep": c.DisableASTGrep,
		"output_format":    c.OutputFormat,

		"tools.enable_fd":    c.Tools.EnableFd,
		"tools.enable_rg":    c.Tools.EnableRg,
		"tools.enable_sg":    c.Tools.EnableSg,
		"tools.enable_rga":   c.Tools.EnableRga,
		"tools.enable_index": c.Tools.EnableIndex,
	}
}

// flatMapToConfig converts the current koanf state into a SearchConfig.
func flatMapToConfig(k *koanf.Koanf) *SearchConfig {
	return &SearchConfig{
		Root:           k.String("root"),
		MaxMatches:     k.Int("max_matches"),
		TimeoutSecs:    k.Int("timeout_secs"),
		Concurrency:    k.Int("concurrency"),
		ContextBefore:  k.Int("context_before"),
		ContextAfter:   k.Int("context_after"),
		RetrieveBody:   k.Bool("retrieve_body"),
		CacheDir:       k.String("cache_dir"),
		DisableASTGrep: k.Bool("disable_ast_grep"),
		OutputFormat:   k.String("output_format"),
		Tools: ToolConfig{
			EnableFd:    k.Bool("tools.enable_fd"),
			EnableRg:    k.Bool("tools.enable_rg"),
			EnableSg:    k.Bool("tools.enable_sg"),
			EnableRga:   k.Bool("tools.enable_rga"),
			EnableIndex: k.Bool("tools.enable_index"),
		},
	}
}
