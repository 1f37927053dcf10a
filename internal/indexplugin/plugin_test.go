package indexplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLinesDropsTrailingNewline(t *testing.T) {
	assert.Equal(t, []string{"a.rs", "b/c.rs"}, splitLines([]byte("a.rs\nb/c.rs\n")))
}

func TestSplitLinesNoTrailingNewline(t *testing.T) {
	assert.Equal(t, []string{"a.rs", "b.rs"}, splitLines([]byte("a.rs\nb.rs")))
}

func TestSplitLinesEmpty(t *testing.T) {
	assert.Nil(t, splitLines(nil))
}

func TestSplitLinesSkipsBlankSegments(t *testing.T) {
	assert.Equal(t, []string{"a.rs", "b.rs"}, splitLines([]byte("a.rs\n\nb.rs\n")))
}

func TestCloseOnNilPluginIsNoOp(t *testing.T) {
	var p *Plugin
	assert.NoError(t, p.Close(nil))
}
