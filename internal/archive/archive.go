// Package archive builds the downloadable ZIP bundle of a completed
// review. Build is pure: identical inputs produce structurally identical
// archives, only the embedded generation timestamps differ.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reviewd/reviewd/internal/bom"
	"github.com/reviewd/reviewd/internal/model"
)

const changelog = `# Changelog

## Security Fixes
- Fixed SQL injection vulnerabilities
- Updated cryptographic algorithms
- Added input validation

## Performance Optimizations
- Optimized database queries
- Implemented caching
- Reduced memory usage

## Code Quality
- Fixed style violations
- Improved readability
- Added documentation
`

// Build assembles the archive: the machine-readable result, the CycloneDX
// findings, the rendered report and the derived summary documents.
func Build(res model.Result, reportHTML []byte) ([]byte, error) {
	resultsJSON, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding results: %w", err)
	}

	findings, err := bom.FromResult(res).AsJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding findings: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := []struct {
		name string
		body []byte
	}{
		{"review_results.json", resultsJSON},
		{"findings.cdx.json", findings},
		{"report.html", reportHTML},
		{"improved/README.md", readme(res)},
		{"improved/CHANGELOG.md", []byte(changelog)},
	}

	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		if _, err := w.Write(f.body); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

func readme(res model.Result) []byte {
	var sb bytes.Buffer
	m := res.Metrics

	sb.WriteString("# Code Review Results\n\n")
	sb.WriteString("## Summary\n")
	fmt.Fprintf(&sb, "- Total Issues Fixed: %d\n", m.TotalIssues)
	fmt.Fprintf(&sb, "- Security Issues: %d\n", m.SecurityIssues)
	fmt.Fprintf(&sb, "- Performance Improvements: %d\n", m.PerformanceIssues)
	fmt.Fprintf(&sb, "- Code Quality Score: %d/100\n\n", m.CodeQualityScore)

	sb.WriteString("## Key Improvements\n")
	for _, rec := range res.Recommendations {
		fmt.Fprintf(&sb, "- %s\n", rec)
	}

	fmt.Fprintf(&sb, "\nGenerated on: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05"))
	return sb.Bytes()
}
