package model

import "time"

// Severity of a single issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities from most to least severe, for grouping in reports.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// Issue is one finding produced by the analyzer.
type Issue struct {
	Type        string   `json:"type"` // Security | Performance | Style | Complexity
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
	CWE         string   `json:"cwe_id,omitempty"` // taxonomy code, security issues only
	Rule        string   `json:"rule,omitempty"`   // style rule id
	Impact      string   `json:"impact,omitempty"`
	Confidence  float64  `json:"confidence"` // [0,1]
}

// Metrics is the fixed-shape counter set of a completed review.
type Metrics struct {
	TotalIssues          int `json:"totalIssues"`
	FilesProcessed       int `json:"filesProcessed"`
	SecurityIssues       int `json:"securityIssues"`
	PerformanceIssues    int `json:"performanceIssues"`
	StyleIssues          int `json:"styleIssues"`
	ComplexityReduction  int `json:"complexityReduction"`
	CodeQualityScore     int `json:"codeQualityScore"` // 0-100
	TestCoverage         int `json:"testCoverage"`
	MaintainabilityIndex int `json:"maintainabilityIndex"`
}

// Improvements summarizes what an applied fix pass would touch.
type Improvements struct {
	OptimizedFunctions       int `json:"optimized_functions"`
	SecurityFixes            int `json:"security_fixes"`
	PerformanceOptimizations int `json:"performance_optimizations"`
	RefactoredComponents     int `json:"refactored_components"`
}

// Result is the immutable output of one completed review. It is written
// once into the result store and never mutated afterwards.
type Result struct {
	SessionID       string       `json:"session_id"`
	Timestamp       time.Time    `json:"timestamp"`
	Metrics         Metrics      `json:"metrics"`
	Issues          []Issue      `json:"issues"`
	Improvements    Improvements `json:"improvements"`
	ConfigUsed      ReviewConfig `json:"config_used"`
	Recommendations []string     `json:"recommendations"`
}
