package output

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/promptlens/promptlens/internal/analysis"
	"github.com/promptlens/promptlens/internal/history"
	"github.com/promptlens/promptlens/internal/prompt"
)

// ImageReport bundles the latest result of every prompt for one image.
type ImageReport struct {
	ImageID string          `json:"image_id"`
	Status  analysis.Status `json:"status"`
	Rows    []ReportRow     `json:"results"`
}

// ReportRow is one prompt's latest outcome.
type ReportRow struct {
	PromptID string            `json:"prompt_id"`
	Question string            `json:"question"`
	Type     prompt.ResultType `json:"type"`
	Depth    int               `json:"-"`
	Status   analysis.Status   `json:"status"`
	Answer   string            `json:"answer,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// BuildImageReport walks the forest in document order and collects the
// latest result per prompt. Prompts that never ran are skipped.
func BuildImageReport(forest *prompt.Forest, hist *history.Store, imageID string, status analysis.Status) *ImageReport {
	report := &ImageReport{
		ImageID: imageID,
		Status:  status,
	}

	for _, top := range forest.TopLevel() {
		appendRows(report, forest, hist, imageID, top, 0)
	}

	return report
}

func appendRows(report *ImageReport, forest *prompt.Forest, hist *history.Store, imageID string, p prompt.Prompt, depth int) {
	if latest, ok := hist.Latest(imageID, p.ID); ok {
		report.Rows = append(report.Rows, ReportRow{
			PromptID: p.ID,
			Question: p.Text,
			Type:     p.ResultType,
			Depth:    depth,
			Status:   latest.Status,
			Answer:   renderValue(latest),
			Error:    latest.Error,
		})
	}

	for _, child := range forest.Children(p.ID) {
		appendRows(report, forest, hist, imageID, child, depth+1)
	}
}

// renderValue turns a result's typed data into display text. Text
// results show the latest conversation answer; other types render by
// their concrete shape.
func renderValue(r analysis.Result) string {
	if len(r.Conversation) > 0 {
		return r.Conversation[len(r.Conversation)-1].Answer
	}

	switch data := r.Data.(type) {
	case nil:
		return ""
	case string:
		return data
	case float64:
		return renderNumber(data)
	case []analysis.BoundingBox:
		return renderBoxes(data)
	case []analysis.BboxChildResult:
		parts := make([]string, 0, len(data))
		for _, child := range data {
			parts = append(parts, child.ParentBox.Label+": "+renderScalar(child.ResultData))
		}
		return strings.Join(parts, "; ")
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(encoded)
	}
}

func renderNumber(value float64) string {
	if math.IsNaN(value) {
		return "n/a"
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}

func renderBoxes(boxes []analysis.BoundingBox) string {
	if len(boxes) == 0 {
		return "no detections"
	}
	labels := make([]string, 0, len(boxes))
	for _, b := range boxes {
		labels = append(labels, b.Label)
	}
	return fmt.Sprintf("%d detected: %s", len(boxes), strings.Join(labels, ", "))
}

func renderScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return "n/a"
	case string:
		return v
	case float64:
		return renderNumber(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit-1] + "…"
}
