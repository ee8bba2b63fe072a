package pcoa

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReportWriter persists formatted ordination reports, one file per
// algorithm, under a shared output directory.
type ReportWriter struct {
	outPath string
}

// NewReportWriter creates a writer rooted at outPath.
func NewReportWriter(outPath string) *ReportWriter {
	return &ReportWriter{outPath: outPath}
}

// Write renders the result and writes <outPath>/<algorithm>.txt, creating
// the output directory on first use. It returns the written path.
func (w *ReportWriter) Write(r *Result) (string, error) {
	if err := os.MkdirAll(w.outPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.outPath, err)
	}

	path := filepath.Join(w.outPath, r.Algorithm+".txt")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(FormatResult(r)); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return path, nil
}
