package vlm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripThinking(t *testing.T) {
	require.Equal(t, "Hello", StripThinking("<think>reasoning</think> Hello"))
	require.Equal(t, "Hello", StripThinking("Hello"))
	require.Equal(t, "a b", StripThinking("<think>x</think>a <think>y</think>b"))
	require.Equal(t, "", StripThinking("<think>only reasoning</think>"))
}

func collectDeltas(deltas []string) string {
	var filter ThinkFilter
	out := ""
	for _, d := range deltas {
		out += filter.Feed(d)
	}
	out += filter.Flush()
	return out
}

func TestThinkFilterSplitMarkers(t *testing.T) {
	// Markers arriving split across deltas must still be recognized.
	out := collectDeltas([]string{"<thi", "nk>hidden reasoning</thi", "nk> Hello", ", world"})
	require.Equal(t, "Hello, world", out)
}

func TestThinkFilterNoThinkBlock(t *testing.T) {
	out := collectDeltas([]string{"Just", " a plain", " answer"})
	require.Equal(t, "Just a plain answer", out)
}

func TestThinkFilterLeadingWhitespace(t *testing.T) {
	out := collectDeltas([]string{"  \n", "<think>", "reasoning", "</think>\nanswer"})
	require.Equal(t, "answer", out)
}

func TestThinkFilterMidStreamMarkerPassesThrough(t *testing.T) {
	// Only a leading thinking block is filtered; later markers are
	// ordinary content.
	out := collectDeltas([]string{"The tag ", "<think>", " appears verbatim"})
	require.Equal(t, "The tag <think> appears verbatim", out)
}

func TestThinkFilterFlushUnterminated(t *testing.T) {
	// A stream that ends inside an unterminated opening marker yields
	// nothing.
	var filter ThinkFilter
	require.Equal(t, "", filter.Feed("<thi"))
	require.Equal(t, "", filter.Flush())
}
