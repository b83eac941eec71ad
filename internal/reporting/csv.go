package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"chain-fraud-lab/internal/domain"
)

var findingsHeader = []string{
	"id", "kind", "severity", "block_number", "key", "event_ids", "addresses", "metrics", "message",
}

// RenderFindingsCSV renders findings as CSV string, one row per finding.
func RenderFindingsCSV(findings []domain.Finding) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(findingsHeader); err != nil {
		return "", err
	}

	for _, f := range findings {
		row := []string{
			f.ID,
			f.Kind,
			f.Severity.String(),
			strconv.FormatUint(f.BlockNumber, 10),
			f.Evidence.Key,
			strings.Join(f.Evidence.EventIDs, ";"),
			strings.Join(f.Evidence.Addresses, ";"),
			formatMetrics(f.Evidence.Metrics),
			f.Message,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderCounterpartiesCSV renders the counterparty summary as CSV string.
func RenderCounterpartiesCSV(rows []domain.Counterparty) string {
	var sb strings.Builder

	// Header
	sb.WriteString("address,sent_count,recv_count,sent_volume,recv_volume\n")

	// Rows
	for _, c := range rows {
		sb.WriteString(c.Address)
		sb.WriteString(",")
		sb.WriteString(strconv.Itoa(c.SentCount))
		sb.WriteString(",")
		sb.WriteString(strconv.Itoa(c.RecvCount))
		sb.WriteString(",")
		sb.WriteString(strconv.FormatFloat(c.SentVolume, 'f', 6, 64))
		sb.WriteString(",")
		sb.WriteString(strconv.FormatFloat(c.RecvVolume, 'f', 6, 64))
		sb.WriteString("\n")
	}

	return sb.String()
}
