package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptlens/promptlens/internal/analysis"
)

func TestBuildRequestTextScore(t *testing.T) {
	p := Prompt{
		ID: "s", Text: "Rate the image quality.", ResultType: ResultScore,
		ScoreRange: [2]float64{1, 5},
	}

	text := BuildRequestText(p, nil)
	require.Contains(t, text, "Rate the image quality.")
	require.Contains(t, text, "a single number on a scale of 1 to 5")
}

func TestBuildRequestTextYesNo(t *testing.T) {
	p := Prompt{ID: "y", Text: "Is anyone smiling?", ResultType: ResultYesNo}

	text := BuildRequestText(p, nil)
	require.Contains(t, text, "Respond with only the word Yes or No.")
}

func TestBuildRequestTextBoundingBox(t *testing.T) {
	p := Prompt{ID: "b", Text: "Find every car.", ResultType: ResultBoundingBox}

	text := BuildRequestText(p, nil)
	require.Contains(t, text, `{"box": [x1, y1, x2, y2], "label": "name"}`)
	require.Contains(t, text, "0-1000")
	require.Contains(t, text, "empty array")
}

func TestBuildRequestTextCategory(t *testing.T) {
	p := Prompt{
		ID: "c", Text: "What is the weather?", ResultType: ResultCategory,
		Categories: []string{"sunny", "cloudy", "rainy"},
	}

	text := BuildRequestText(p, nil)
	require.Contains(t, text, "Respond with only one of: sunny, cloudy, rainy.")
}

func TestBuildRequestTextFanOutScoping(t *testing.T) {
	child := Prompt{ID: "f", Text: "What color is it?", ResultType: ResultText}
	box := analysis.BoundingBox{Box: [4]float64{10, 20, 300, 400}, Label: "car"}

	text := BuildRequestText(child, &box)
	require.Contains(t, text, `Focus exclusively on the "car"`)
	require.Contains(t, text, "[10, 20, 300, 400]")
	require.Contains(t, text, "What color is it?")
	// Sub-region search applies only to nested detection prompts.
	require.NotContains(t, text, "Search only within this sub-region")

	nested := Prompt{ID: "n", Text: "Find the wheels.", ResultType: ResultBoundingBox}
	text = BuildRequestText(nested, &box)
	require.Contains(t, text, "Search only within this sub-region.")
}

func TestBuildRequestTextRegionHint(t *testing.T) {
	p := Prompt{
		ID: "r", Text: "Describe this area.", ResultType: ResultText,
		RegionType: RegionBox, RegionCoords: []float64{0, 0, 500, 500},
	}

	text := BuildRequestText(p, nil)
	require.Contains(t, text, "bounding box [0, 0, 500, 500]")

	// Region hints never apply when executing as a fan-out child.
	box := analysis.BoundingBox{Box: [4]float64{1, 2, 3, 4}, Label: "sign"}
	text = BuildRequestText(p, &box)
	require.NotContains(t, text, "Direct your attention")
}
