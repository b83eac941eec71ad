package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"chain-fraud-lab/internal/domain"
)

// Output file names written by WriteFiles.
const (
	ReportMarkdownFile    = "report.md"
	ReportJSONFile        = "report.json"
	FindingsCSVFile       = "findings.csv"
	CounterpartiesCSVFile = "counterparties.csv"
)

// RenderJSON renders the report as indented JSON.
func RenderJSON(r *domain.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFiles writes every rendering of the report into dir and returns the paths.
func WriteFiles(dir string, r *domain.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	jsonData, err := RenderJSON(r)
	if err != nil {
		return nil, err
	}
	findingsCSV, err := RenderFindingsCSV(r.Findings)
	if err != nil {
		return nil, fmt.Errorf("render findings csv: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{ReportMarkdownFile, []byte(RenderMarkdown(r))},
		{ReportJSONFile, jsonData},
		{FindingsCSVFile, []byte(findingsCSV)},
		{CounterpartiesCSVFile, []byte(RenderCounterpartiesCSV(r.Counterparties))},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
