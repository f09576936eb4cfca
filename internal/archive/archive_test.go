package archive_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reviewd/reviewd/internal/archive"
	"github.com/reviewd/reviewd/internal/model"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	res := model.Result{
		SessionID: "s1",
		Metrics: model.Metrics{
			TotalIssues:      2,
			SecurityIssues:   1,
			CodeQualityScore: 96,
		},
		Issues: []model.Issue{
			{Type: "Security", Severity: model.SeverityHigh, File: "app.py", Line: 1, Description: "first", CWE: "CWE-89"},
			{Type: "Style", Severity: model.SeverityLow, File: "app.py", Line: 2, Description: "second"},
		},
		Recommendations: []string{"Add input validation for all user-facing interfaces"},
	}

	raw, err := archive.Build(res, []byte("<html>report</html>"))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = body
	}

	require.Len(t, entries, 5)

	var decoded model.Result
	require.NoError(t, json.Unmarshal(entries["review_results.json"], &decoded))
	require.Equal(t, res.SessionID, decoded.SessionID)
	require.Len(t, decoded.Issues, 2)

	require.Contains(t, string(entries["findings.cdx.json"]), "CycloneDX")
	require.Equal(t, "<html>report</html>", string(entries["report.html"]))

	readme := string(entries["improved/README.md"])
	require.Contains(t, readme, "- Total Issues Fixed: 2")
	require.Contains(t, readme, "- Security Issues: 1")
	require.Contains(t, readme, "- Code Quality Score: 96/100")
	require.Contains(t, readme, "Generated on:")

	require.Contains(t, string(entries["improved/CHANGELOG.md"]), "# Changelog")
}

func TestBuildReproducible(t *testing.T) {
	t.Parallel()

	res := model.Result{SessionID: "s1", Metrics: model.Metrics{TotalIssues: 1}}

	first, err := archive.Build(res, []byte("same"))
	require.NoError(t, err)
	second, err := archive.Build(res, []byte("same"))
	require.NoError(t, err)

	names := func(raw []byte) []string {
		zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
		require.NoError(t, err)
		var out []string
		for _, f := range zr.File {
			out = append(out, f.Name)
		}
		return out
	}
	require.Equal(t, names(first), names(second))
}
