package bom_test

import (
	"encoding/json"
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/require"

	"github.com/reviewd/reviewd/internal/bom"
	"github.com/reviewd/reviewd/internal/model"
)

func TestFromResult(t *testing.T) {
	t.Parallel()

	res := model.Result{
		SessionID: "s1",
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
				Type:        "Style",
				Severity:    model.SeverityLow,
				Category:    "formatting",
				File:        "app.py",
				Line:        10,
				Description: "Line exceeds maximum length (120 characters)",
				Suggestion:  "Break long line into multiple lines",
				Confidence:  1.0,
			},
		},
	}

	doc := bom.FromResult(res).BOM()

	require.Equal(t, "CycloneDX", doc.BOMFormat)
	require.NotNil(t, doc.Components)
	require.Len(t, *doc.Components, 1) // both issues share app.py
	require.Equal(t, "app.py", (*doc.Components)[0].Name)
	require.Equal(t, cdx.ComponentTypeFile, (*doc.Components)[0].Type)

	require.NotNil(t, doc.Vulnerabilities)
	vulns := *doc.Vulnerabilities
	require.Len(t, vulns, 2)

	require.Equal(t, "CWE-89", vulns[0].ID)
	require.NotNil(t, vulns[0].CWEs)
	require.Equal(t, []int{89}, *vulns[0].CWEs)
	require.Equal(t, "Security: SQL injection vulnerability detected", vulns[0].Description)
	require.Equal(t, cdx.SeverityHigh, (*vulns[0].Ratings)[0].Severity)
	require.Equal(t, "file:app.py", (*vulns[0].Affects)[0].Ref)

	require.Empty(t, vulns[1].ID) // style issue has no taxonomy code
	require.Nil(t, vulns[1].CWEs)
	require.Equal(t, cdx.SeverityLow, (*vulns[1].Ratings)[0].Severity)
}

func TestAsJSON(t *testing.T) {
	t.Parallel()

	raw, err := bom.FromResult(model.Result{}).AsJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "CycloneDX", decoded["bomFormat"])
	require.Contains(t, decoded["serialNumber"], "urn:uuid:")
}
