// Package bom converts a completed review into a CycloneDX document: one
// file component per reviewed file mentioned in the findings and one
// vulnerability entry per issue.
package bom

import (
	"bytes"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"

	"github.com/reviewd/reviewd/internal/model"
)

var version string

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		version = "unknown"
	} else {
		version = info.Main.Version
	}
}

// Builder is a builder pattern for the findings BOM structure.
type Builder struct {
	components      []cdx.Component
	vulnerabilities []cdx.Vulnerability
}

func NewBuilder() *Builder {
	return &Builder{
		// those MUST be initialized as the CycloneDX JSON schema does not
		// allow items to be null
		components:      []cdx.Component{},
		vulnerabilities: []cdx.Vulnerability{},
	}
}

func (b *Builder) AppendComponents(components ...cdx.Component) *Builder {
	b.components = append(b.components, components...)
	return b
}

func (b *Builder) AppendVulnerabilities(vulnerabilities ...cdx.Vulnerability) *Builder {
	b.vulnerabilities = append(b.vulnerabilities, vulnerabilities...)
	return b
}

// FromResult fills a Builder from the issues of a completed review.
func FromResult(res model.Result) *Builder {
	b := NewBuilder()

	seen := make(map[string]struct{})
	for _, issue := range res.Issues {
		if _, ok := seen[issue.File]; ok {
			continue
		}
		seen[issue.File] = struct{}{}
		b.AppendComponents(cdx.Component{
			BOMRef: fileRef(issue.File),
			Type:   cdx.ComponentTypeFile,
			Name:   issue.File,
		})
	}

	for i, issue := range res.Issues {
		b.AppendVulnerabilities(issueVulnerability(i, issue))
	}

	return b
}

func issueVulnerability(i int, issue model.Issue) cdx.Vulnerability {
	score := issue.Confidence * 10

	v := cdx.Vulnerability{
		BOMRef:      "finding-" + strconv.Itoa(i),
		ID:          issue.CWE,
		Description: issue.Type + ": " + issue.Description,
		Detail:      "line " + strconv.Itoa(issue.Line) + ", category " + issue.Category,
		Ratings: &[]cdx.VulnerabilityRating{
			{
				Score:    &score,
				Severity: cdxSeverity(issue.Severity),
				Method:   cdx.ScoringMethodOther,
			},
		},
		Recommendation: issue.Suggestion,
		Affects: &[]cdx.Affects{
			{Ref: fileRef(issue.File)},
		},
	}

	if n, ok := cweNumber(issue.CWE); ok {
		v.CWEs = &[]int{n}
	}
	return v
}

// BOM returns a cdx.BOM based on the data inside the Builder.
func (b *Builder) BOM() cdx.BOM {
	return cdx.BOM{
		JSONSchema:   "https://cyclonedx.org/schema/bom-1.6.schema.json",
		BOMFormat:    "CycloneDX",
		SpecVersion:  cdx.SpecVersion1_6,
		SerialNumber: "urn:uuid:" + uuid.New().String(),
		Version:      1,
		Metadata: &cdx.Metadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Component: &cdx.Component{
				Type:    "application",
				Name:    "reviewd",
				Version: version,
			},
		},
		Components:      &b.components,
		Vulnerabilities: &b.vulnerabilities,
	}
}

// AsJSON encodes the BOM into pretty-printed JSON.
func (b *Builder) AsJSON() ([]byte, error) {
	bom := b.BOM()
	var buf bytes.Buffer
	err := cdx.NewBOMEncoder(&buf, cdx.BOMFileFormatJSON).SetPretty(true).Encode(&bom)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cdxSeverity(s model.Severity) cdx.Severity {
	switch s {
	case model.SeverityHigh:
		return cdx.SeverityHigh
	case model.SeverityMedium:
		return cdx.SeverityMedium
	case model.SeverityLow:
		return cdx.SeverityLow
	default:
		return cdx.SeverityUnknown
	}
}

func cweNumber(cwe string) (int, bool) {
	rest, ok := strings.CutPrefix(cwe, "CWE-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func fileRef(name string) string {
	return "file:" + name
}
