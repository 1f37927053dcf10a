package cli

import (
	"bytes"
	"testing"

	"github.com/swegrep/swegrep/internal/searchtypes"
	"github.com/swegrep/swegrep/internal/testutil"
)

func TestRenderTableMatchesGolden(t *testing.T) {
	summary := &searchtypes.CycleSummary{
		Cycle:   "11111111-1111-1111-1111-111111111111",
		Symbol:  "widget_factory",
		Deduped: 1,
		TopHits: []searchtypes.Hit{
			{Path: "src/lib.rs", Line: 12, Origin: "ast-grep", Score: 0.91},
		},
		StageStats: searchtypes.StageStats{CycleLatencyMs: 120},
	}

	var buf bytes.Buffer
	if err := renderTable(&buf, summary); err != nil {
		t.Fatalf("renderTable: %v", err)
	}
	testutil.Golden(t, "render_table_single_hit", buf.Bytes())
}
