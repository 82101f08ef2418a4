package coerce

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/prompt"
)

func TestNumberExtraction(t *testing.T) {
	require.Equal(t, 4.0, Number("I'd say about 4 out of 5"))
	require.Equal(t, 4.0, Number("4"))
	require.Equal(t, -2.5, Number("roughly -2.5 degrees"))
	require.True(t, math.IsNaN(Number("no digits here")))
	require.True(t, math.IsNaN(Number("")))
}

func TestForTypeTrimsText(t *testing.T) {
	value, err := ForType(prompt.ResultText, "  an answer \n")
	require.NoError(t, err)
	require.Equal(t, "an answer", value)

	value, err = ForType(prompt.ResultYesNo, " Yes. ")
	require.NoError(t, err)
	require.Equal(t, "Yes.", value)
}

func TestBoundingBoxesWithFences(t *testing.T) {
	raw := "```json\n[{\"box\": [10, 20, 30, 40], \"label\": \"dog\"}]\n```"

	boxes, err := BoundingBoxes(raw)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, "dog", boxes[0].Label)
	require.Equal(t, [4]float64{10, 20, 30, 40}, boxes[0].Box)
}

func TestBoundingBoxesEmptyArray(t *testing.T) {
	boxes, err := BoundingBoxes("[]")
	require.NoError(t, err)
	require.Empty(t, boxes)
}

func TestBoundingBoxesParseError(t *testing.T) {
	_, err := BoundingBoxes("there are two dogs")
	require.Error(t, err)

	var parse *ParseError
	require.True(t, errors.As(err, &parse))
	require.Equal(t, "there are two dogs", parse.Raw)
}

func TestJSONValueWithFences(t *testing.T) {
	value, err := JSONValue("```\n{\"mood\": \"calm\", \"count\": 3}\n```")
	require.NoError(t, err)

	obj := value.(map[string]any)
	require.Equal(t, "calm", obj["mood"])
	require.Equal(t, 3.0, obj["count"])
}

func TestStripFences(t *testing.T) {
	require.Equal(t, "[1]", StripFences("```json\n[1]\n```"))
	require.Equal(t, "[1]", StripFences("[1]"))
	require.Equal(t, "plain", StripFences("  plain  "))
}

func TestForChild(t *testing.T) {
	box := analysis.BoundingBox{Box: [4]float64{1, 2, 3, 4}, Label: "car"}

	result := ForChild(prompt.ResultNumber, "about 7 meters", box)
	require.True(t, box.Equal(result.ParentBox))
	require.Equal(t, 7.0, result.ResultData)

	result = ForChild(prompt.ResultText, "  dark red  ", box)
	require.Equal(t, "dark red", result.ResultData)

	result = ForChild(prompt.ResultScore, "none", box)
	require.True(t, math.IsNaN(result.ResultData.(float64)))
}
