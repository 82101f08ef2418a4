package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/promptlens/promptlens/internal/analysis"
)

// TableFormatter renders reports as an ASCII table.
type TableFormatter struct{}

// FormatReport renders an image report as a table.
func (f *TableFormatter) FormatReport(report *ImageReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(report.ImageID)
	t.AppendHeader(table.Row{"Prompt", "Type", "Status", "Answer"})

	for _, row := range report.Rows {
		t.AppendRow(table.Row{
			indent(row.Depth) + truncate(row.Question, 48),
			string(row.Type),
			statusLabel(row),
			answerCell(row),
		})
	}

	success := 0
	for _, row := range report.Rows {
		if row.Status == analysis.StatusSuccess {
			success++
		}
	}
	if len(report.Rows) > 0 {
		t.AppendFooter(table.Row{
			"",
			"",
			string(report.Status),
			fmt.Sprintf("%d/%d succeeded", success, len(report.Rows)),
		})
	}

	return t.Render(), nil
}

func indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("  ", depth) + "↳ "
}

func statusLabel(row ReportRow) string {
	switch row.Status {
	case analysis.StatusSuccess:
		return "ok"
	case analysis.StatusError:
		return "error"
	case analysis.StatusLoading:
		return "running"
	default:
		return string(row.Status)
	}
}

func answerCell(row ReportRow) string {
	if row.Status == analysis.StatusError {
		return truncate(row.Error, 64)
	}
	return truncate(row.Answer, 64)
}
