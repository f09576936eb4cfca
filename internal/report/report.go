// Package report renders a completed review into human-readable documents.
// Both renderers are pure: same result in, same content out, any number of
// times.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	_ "embed"

	"github.com/reviewd/reviewd/internal/model"
)

//go:embed report.html.tmpl
var htmlSource string

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
}).Parse(htmlSource))

type htmlData struct {
	GeneratedAt string
	Result      model.Result
}

// HTML renders the full report document: generation timestamp, the metric
// set, one entry per issue grouped visually by severity, and the
// recommendation list.
func HTML(res model.Result) ([]byte, error) {
	var buf bytes.Buffer
	err := htmlTmpl.Execute(&buf, htmlData{
		GeneratedAt: time.Now().UTC().Format("January 2, 2006 at 15:04 MST"),
		Result:      res,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return buf.Bytes(), nil
}

// Text renders a terminal-friendly summary, used by the CLI client.
func Text(res model.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Code Review Report (session %s)\n", res.SessionID)
	fmt.Fprintf(&sb, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC1123))

	m := res.Metrics
	fmt.Fprintf(&sb, "Files processed:     %d\n", m.FilesProcessed)
	fmt.Fprintf(&sb, "Total issues:        %d\n", m.TotalIssues)
	fmt.Fprintf(&sb, "  security:          %d\n", m.SecurityIssues)
	fmt.Fprintf(&sb, "  performance:       %d\n", m.PerformanceIssues)
	fmt.Fprintf(&sb, "  style:             %d\n", m.StyleIssues)
	fmt.Fprintf(&sb, "Quality score:       %d/100\n", m.CodeQualityScore)
	fmt.Fprintf(&sb, "Maintainability:     %d\n\n", m.MaintainabilityIndex)

	if len(res.Issues) > 0 {
		sb.WriteString("Issues\n")
		for _, issue := range res.Issues {
			fmt.Fprintf(&sb, "  [%s] %s: %s\n", strings.ToUpper(string(issue.Severity)), issue.Type, issue.Description)
			fmt.Fprintf(&sb, "      %s:%d", issue.File, issue.Line)
			if issue.CWE != "" {
				fmt.Fprintf(&sb, " (%s)", issue.CWE)
			}
			sb.WriteByte('\n')
			fmt.Fprintf(&sb, "      fix: %s\n", issue.Suggestion)
		}
		sb.WriteByte('\n')
	}

	if len(res.Recommendations) > 0 {
		sb.WriteString("Recommendations\n")
		for _, rec := range res.Recommendations {
			fmt.Fprintf(&sb, "  - %s\n", rec)
		}
	}

	return sb.String()
}
