// Package reporting renders analysis reports for humans and spreadsheets.
package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"chain-fraud-lab/internal/decision"
	"chain-fraud-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *domain.Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Fraud Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("Report: `%s`\n\n", r.ID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Scope
	sb.WriteString("## Scope\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Entity | %s |\n", entityLabel(r.Entity)))
	sb.WriteString(fmt.Sprintf("| Blocks | %s |\n", blockRange(r.FromBlock, r.ToBlock)))
	sb.WriteString(fmt.Sprintf("| Events | %d |\n", r.EventCount))
	sb.WriteString(fmt.Sprintf("| Detectors | %s |\n", strings.Join(r.Detectors, ", ")))
	sb.WriteString("\n")

	// Baseline
	sb.WriteString("## Baseline\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Window | %s |\n", r.Baseline.Window))
	sb.WriteString(fmt.Sprintf("| Samples | %d |\n", r.Baseline.SampleCount))
	sb.WriteString(fmt.Sprintf("| Mean | %.4f |\n", r.Baseline.Mean))
	sb.WriteString(fmt.Sprintf("| Std Dev | %.4f |\n", r.Baseline.StdDev))
	sb.WriteString("\n")
	if !r.Baseline.HasSpread() {
		sb.WriteString("Baseline has no spread; z-score based detectors were skipped.\n\n")
	}

	sb.WriteString(decision.RenderMarkdown(r.Decision))

	// Findings
	sb.WriteString("## Findings\n\n")
	if len(r.Findings) > 0 {
		sb.WriteString("| # | Severity | Detector | Block | Message |\n")
		sb.WriteString("|---|----------|----------|-------|---------|\n")
		for i, f := range r.Findings {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s |\n",
				i+1, strings.ToUpper(f.Severity.String()), f.Kind, f.BlockNumber, escapeCell(f.Message)))
		}
	} else {
		sb.WriteString("No findings.\n")
	}
	sb.WriteString("\n")

	// Evidence
	if len(r.Findings) > 0 {
		sb.WriteString("### Evidence\n\n")
		for i, f := range r.Findings {
			sb.WriteString(fmt.Sprintf("%d. `%s` key=`%s`", i+1, f.Kind, f.Evidence.Key))
			if m := formatMetrics(f.Evidence.Metrics); m != "" {
				sb.WriteString(" " + m)
			}
			if len(f.Evidence.Addresses) > 0 {
				sb.WriteString(" addresses: " + strings.Join(f.Evidence.Addresses, ", "))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	// Counterparties
	if len(r.Counterparties) > 0 {
		sb.WriteString("## Top Counterparties\n\n")
		sb.WriteString("| Address | Sent | Received | Sent Volume | Received Volume |\n")
		sb.WriteString("|---------|------|----------|-------------|-----------------|\n")
		for _, c := range r.Counterparties {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f |\n",
				c.Address, c.SentCount, c.RecvCount, c.SentVolume, c.RecvVolume))
		}
		sb.WriteString("\n")
	}

	// Faults and dropped records (always shown if present)
	if len(r.Faults) > 0 {
		sb.WriteString("## Detector Faults\n\n")
		for _, f := range r.Faults {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Detector, f.Error))
		}
		sb.WriteString("\n")
	}
	if len(r.Dropped) > 0 {
		sb.WriteString("## Dropped Records\n\n")
		for _, d := range r.Dropped {
			sb.WriteString(fmt.Sprintf("- #%d (%s): %s\n", d.Index, kindLabel(d.Kind), d.Reason))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func entityLabel(entity string) string {
	if entity == "" {
		return "(whole window)"
	}
	return entity
}

func kindLabel(kind domain.EventKind) string {
	if kind == "" {
		return "unknown"
	}
	return kind.String()
}

func blockRange(from, to uint64) string {
	if to == 0 {
		return fmt.Sprintf("%d - latest", from)
	}
	return fmt.Sprintf("%d - %d", from, to)
}

// formatMetrics renders metrics as sorted key=value pairs.
func formatMetrics(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4g", k, m[k])
	}
	return strings.Join(parts, " ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
