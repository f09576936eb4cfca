package model

// BatchFile is one uploaded source file. Content may be nil when only the
// path matters to the analyzer.
type BatchFile struct {
	Name    string
	Content []byte
}

// Batch is the unit of submission: the set of files one review runs over.
type Batch struct {
	Files []BatchFile
}

// Names returns the file names in submission order.
func (b Batch) Names() []string {
	names := make([]string, 0, len(b.Files))
	for _, f := range b.Files {
		names = append(names, f.Name)
	}
	return names
}

// ReviewConfig is the per-submission configuration passed through to the
// analyzer and snapshotted into the Result. The zero value is not useful,
// use DefaultReviewConfig.
type ReviewConfig struct {
	Analysis Analysis `json:"analysis"`
	Rules    Rules    `json:"rules"`
	Filters  Filters  `json:"filters"`
}

// Analysis toggles the analyzer families.
type Analysis struct {
	Security    bool `json:"security"`
	Performance bool `json:"performance"`
	Style       bool `json:"style"`
	Complexity  bool `json:"complexity"`
}

type Rules struct {
	StyleGuide    string `json:"styleGuide"`
	MaxLineLength int    `json:"maxLineLength"`
	MaxComplexity int    `json:"maxComplexity"`
}

type Filters struct {
	MinSeverity  Severity `json:"minSeverity"`
	ExcludeFiles []string `json:"excludeFiles,omitempty"`
}

func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		Analysis: Analysis{
			Security:    true,
			Performance: true,
			Style:       true,
			Complexity:  true,
		},
		Rules: Rules{
			StyleGuide:    "pep8",
			MaxLineLength: 120,
			MaxComplexity: 10,
		},
		Filters: Filters{
			MinSeverity: SeverityLow,
		},
	}
}
