package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/promptlens/promptlens/internal/analysis"
)

// BuildRequestText renders the instruction text sent to the model for
// a prompt. Type-specific suffixes keep the free-text answer
// machine-parseable. When box is non-nil the prompt is being executed
// as a fan-out child against one detected object, and the text is
// scoped to that object.
func BuildRequestText(p Prompt, box *analysis.BoundingBox) string {
	var b strings.Builder

	if box != nil {
		fmt.Fprintf(&b, "Focus exclusively on the %q located at bounding box [%s] in a 0-1000 coordinate space. ",
			box.Label, formatCoords(box.Box[:]))
		if p.ResultType == ResultBoundingBox {
			fmt.Fprintf(&b, "Search only within this sub-region. ")
		}
	}

	b.WriteString(strings.TrimSpace(p.Text))

	switch p.ResultType {
	case ResultText:
		if box == nil && len(p.RegionCoords) > 0 {
			b.WriteString(regionHint(p))
		}
	case ResultScore:
		fmt.Fprintf(&b, " Respond with only a single number on a scale of %s to %s.",
			formatNumber(p.ScoreRange[0]), formatNumber(p.ScoreRange[1]))
	case ResultNumber:
		b.WriteString(" Respond with only a single number.")
	case ResultYesNo:
		b.WriteString(" Respond with only the word Yes or No.")
	case ResultBoundingBox:
		b.WriteString(" Return strictly a JSON array of objects of the form" +
			` {"box": [x1, y1, x2, y2], "label": "name"},` +
			" with coordinates in a 0-1000 normalized space on both axes." +
			" Return an empty array if nothing is found. Do not return any other text.")
	case ResultCategory:
		fmt.Fprintf(&b, " Respond with only one of: %s.", strings.Join(p.Categories, ", "))
	case ResultJSON:
		fmt.Fprintf(&b, " Return only a JSON object strictly matching this schema: %s. Do not return any other text.",
			strings.TrimSpace(p.JSONSchema))
	}

	return b.String()
}

func regionHint(p Prompt) string {
	switch p.RegionType {
	case RegionPoint:
		return fmt.Sprintf(" Direct your attention to the area around the point (%s) in a 0-1000 coordinate space on both axes.",
			formatCoords(p.RegionCoords))
	case RegionBox:
		return fmt.Sprintf(" Direct your attention to the region inside the bounding box [%s] in a 0-1000 coordinate space on both axes.",
			formatCoords(p.RegionCoords))
	}
	return ""
}

func formatCoords(coords []float64) string {
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		parts = append(parts, formatNumber(c))
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
