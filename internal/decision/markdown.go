package decision

import (
	"fmt"
	"sort"
	"strings"

	"chain-fraud-lab/internal/domain"
)

// RenderMarkdown renders a Decision as a Markdown section.
func RenderMarkdown(d domain.Decision) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", d.Verdict))
	if d.MaxSeverity != nil {
		sb.WriteString(fmt.Sprintf("Max severity: **%s**\n\n", d.MaxSeverity))
	}

	// Criteria table
	sb.WriteString("| # | Criterion | Threshold | Actual | Status |\n")
	sb.WriteString("|---|-----------|-----------|--------|--------|\n")
	for i, c := range d.Criteria {
		statusStr := "NOT TRIGGERED"
		if c.Triggered {
			statusStr = "TRIGGERED"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, statusStr))
	}
	sb.WriteString("\n")

	if len(d.CountByKind) > 0 {
		kinds := make([]string, 0, len(d.CountByKind))
		for k := range d.CountByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		sb.WriteString("Findings by detector:\n")
		for _, k := range kinds {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", k, d.CountByKind[k]))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
