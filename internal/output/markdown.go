package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders reports as a markdown table.
type MarkdownFormatter struct{}

// FormatReport renders an image report as markdown.
func (f *MarkdownFormatter) FormatReport(report *ImageReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", report.ImageID, report.Status)
	b.WriteString("| Prompt | Type | Status | Answer |\n")
	b.WriteString("| --- | --- | --- | --- |\n")

	for _, row := range report.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeCell(indent(row.Depth)+truncate(row.Question, 48)),
			row.Type,
			statusLabel(row),
			escapeCell(answerCell(row)),
		)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
