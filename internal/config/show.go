package config

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Show renders a ResolvedConfig as indented JSON, for `swegrep config show`.
func Show(w io.Writer, rc *ResolvedConfig) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rc.Config)
}

// Explain renders every resolved field alongside the layer that supplied its
// value, for `swegrep config explain`. Fields never overridden by a file,
// env var, or flag are attributed to SourceDefault.
func Explain(w io.Writer, rc *ResolvedConfig) error {
	flat := configToFlatMap(rc.Config)
	for _, key := range sortedKeys(flat) {
		src, ok := rc.Sources[key]
		if !ok {
			src = SourceDefault
		}
		if _, err := fmt.Fprintf(w, "%-24s %-12v (%s)\n", key, flat[key], src.String()); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
