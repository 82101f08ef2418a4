// Package coerce turns raw model text into the typed result value a
// prompt's result type calls for.
package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/prompt"
)

// ParseError marks model output that was not valid JSON where JSON
// was required. It is a hard failure for the attempt, unlike a failed
// numeric extraction which yields NaN.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %s", e.Reason)
}

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	fenceOpen     = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceClose    = regexp.MustCompile("\\s*```$")
)

// ForType coerces post-strip raw text according to the prompt's
// result type.
func ForType(rt prompt.ResultType, raw string) (any, error) {
	switch rt {
	case prompt.ResultNumber, prompt.ResultScore:
		return Number(raw), nil
	case prompt.ResultText, prompt.ResultYesNo, prompt.ResultCategory:
		return strings.TrimSpace(raw), nil
	case prompt.ResultBoundingBox:
		return BoundingBoxes(raw)
	case prompt.ResultJSON:
		return JSONValue(raw)
	default:
		return nil, fmt.Errorf("unknown result type %q", rt)
	}
}

// Number extracts the first signed or unsigned decimal numeral from
// the text. Extraction failure is a soft outcome: NaN, not an error.
func Number(raw string) float64 {
	match := numberPattern.FindString(raw)
	if match == "" {
		return math.NaN()
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return math.NaN()
	}
	return value
}

// BoundingBoxes parses a JSON array of detections, tolerating
// surrounding code fences.
func BoundingBoxes(raw string) ([]analysis.BoundingBox, error) {
	cleaned := StripFences(raw)
	var boxes []analysis.BoundingBox
	if err := json.Unmarshal([]byte(cleaned), &boxes); err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: raw}
	}
	return boxes, nil
}

// JSONValue parses an arbitrary JSON value, tolerating surrounding
// code fences.
func JSONValue(raw string) (any, error) {
	cleaned := StripFences(raw)
	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: raw}
	}
	return value, nil
}

// StripFences removes markdown code-fence markup wrapping a payload.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = fenceOpen.ReplaceAllString(cleaned, "")
		cleaned = fenceClose.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

// ForChild coerces a fan-out child's answer. Numeric child types use
// the number rules; everything else passes through as trimmed text.
// The value is always keyed to the originating detection.
func ForChild(rt prompt.ResultType, raw string, parentBox analysis.BoundingBox) analysis.BboxChildResult {
	var data any
	switch rt {
	case prompt.ResultNumber, prompt.ResultScore:
		data = Number(raw)
	default:
		data = strings.TrimSpace(raw)
	}
	return analysis.BboxChildResult{ParentBox: parentBox, ResultData: data}
}
