package report_test

import (
	"strings"
	"testing"

	"github.com/reviewd/reviewd/internal/model"
	"github.com/reviewd/reviewd/internal/report"
	"github.com/stretchr/testify/require"
)

func testResult() model.Result {
	return model.Result{
		SessionID: "deadbeef",
		Metrics: model.Metrics{
			TotalIssues:       2,
			FilesProcessed:    3,
			SecurityIssues:    1,
			PerformanceIssues: 1,
			CodeQualityScore:  96,
		},
		Issues: []model.Issue{
			{
				Type:        "Security",
				Severity:    model.SeverityHigh,
				Category:    "injection",
				File:        "app.py",
				Line:        42,
				Description: "SQL injection vulnerability detected",
				Suggestion:  "Use parameterized queries instead of string concatenation",
				CWE:         "CWE-89",
				Confidence:  0.9,
			},
			{
				Type:        "Performance",
				Severity:    model.SeverityMedium,
				Category:    "algorithm",
				File:        "main.go",
				Line:        7,
				Description: "O(n²) algorithm detected in loop",
				Suggestion:  "Consider using dictionary lookup for O(1) access",
				Confidence:  0.85,
			},
		},
		Recommendations: []string{
			"Add input validation for all user-facing interfaces",
		},
	}
}

func TestHTML(t *testing.T) {
	t.Parallel()

	doc, err := report.HTML(testResult())
	require.NoError(t, err)

	html := string(doc)
	require.Contains(t, html, "<!DOCTYPE html>")
	require.Contains(t, html, "Generated on")
	require.Contains(t, html, `<div class="metric-value">2</div>`) // total issues
	require.Contains(t, html, `severity-high`)
	require.Contains(t, html, `severity-medium`)
	require.Contains(t, html, "SQL injection vulnerability detected")
	require.Contains(t, html, "app.py")
	require.Contains(t, html, "(Line 42)")
	require.Contains(t, html, "CWE-89")
	require.Contains(t, html, "Add input validation for all user-facing interfaces")
	// medium issue has no CWE, the block must be skipped
	require.Equal(t, 1, strings.Count(html, "CWE ID:"))
}

func TestHTMLIdempotent(t *testing.T) {
	t.Parallel()

	res := testResult()
	first, err := report.HTML(res)
	require.NoError(t, err)
	second, err := report.HTML(res)
	require.NoError(t, err)

	// the only permitted difference is the generation timestamp line
	require.Equal(t, stripGenerated(string(first)), stripGenerated(string(second)))
}

func TestText(t *testing.T) {
	t.Parallel()

	out := report.Text(testResult())
	require.Contains(t, out, "session deadbeef")
	require.Contains(t, out, "Total issues:        2")
	require.Contains(t, out, "[HIGH] Security: SQL injection vulnerability detected")
	require.Contains(t, out, "app.py:42 (CWE-89)")
	require.Contains(t, out, "Quality score:       96/100")
	require.Contains(t, out, "- Add input validation for all user-facing interfaces")
}

func stripGenerated(html string) string {
	var kept []string
	for line := range strings.Lines(html) {
		if strings.Contains(line, "Generated on") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "")
}
