package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadFromFile reads and parses a TOML configuration file at path into a
// SearchConfig. Unknown TOML keys produce slog warnings (not errors), so a
// newer config file can add fields without breaking an older swegrep binary.
func LoadFromFile(path string) (*SearchConfig, error) {
	var cfg SearchConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	warnUndecodedKeys(meta, path)
	return &cfg, nil
}

// LoadFromString parses TOML configuration from an in-memory string. It
// behaves identically to LoadFromFile except the source is a string rather
// than a file. name is used only in log messages.
func LoadFromString(data, name string) (*SearchConfig, error) {
	var cfg SearchConfig
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	warnUndecodedKeys(meta, name)
	return &cfg, nil
}

func warnUndecodedKeys(meta toml.MetaData, source string) {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	slog.Warn("unknown config keys will be ignored", "source", source, "keys", strings.Join(keys, ", "))
}
