package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SourceType describes how the audited code entered the system.
type SourceType string

const (
	SourceManual SourceType = "manual"
	SourceFile   SourceType = "file"
	SourceGitHub SourceType = "github"
)

// ParseSourceType validates a source type string
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case SourceManual, SourceFile, SourceGitHub:
		return SourceType(s), nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// Severity is the closed risk ranking of an audit issue.
// The zero value is not a valid severity; use ParseSeverity.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
	SeveritySafe   Severity = "safe"
)

// ErrUnknownSeverity is returned when a severity string is not part of the
// closed enumeration. Unknown severities are rejected at validation time
// rather than silently mapped to a fallback.
var ErrUnknownSeverity = errors.New("unknown severity")

// ParseSeverity validates a severity string against the closed enumeration
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo, SeveritySafe:
		return Severity(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}

// Rank returns the risk rank of a severity for sorting, highest risk first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 4
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 2
	case SeveritySafe:
		return 1
	}
	return 0
}

// RGB is a fixed display color for a severity value.
type RGB struct {
	R, G, B int
}

var severityColors = map[Severity]RGB{
	SeverityHigh:   {220, 53, 69},  // red
	SeverityMedium: {255, 193, 7},  // amber
	SeverityLow:    {40, 167, 69},  // green
	SeveritySafe:   {40, 167, 69},  // green
	SeverityInfo:   {13, 110, 253}, // blue
}

// colorUnknown is used for any severity outside the enumeration. Parsing
// rejects such values, so this only shows up for records predating validation.
var colorUnknown = RGB{108, 117, 125} // gray

// Color returns the exact display color for a severity
func (s Severity) Color() RGB {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return colorUnknown
}

// AuditIssue is a single finding within a category
type AuditIssue struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	CodeReference  string   `json:"code_reference,omitempty"`
	Recommendation string   `json:"recommendation"`
}

// AuditCategory is one scoring dimension of an audit
type AuditCategory struct {
	Name        string       `json:"name"`
	Score       int          `json:"score"`
	MaxScore    int          `json:"max_score"`
	Description string       `json:"description"`
	Issues      []AuditIssue `json:"issues"`
}

// CategoryWeight pairs a fixed category name with its maximum score.
type CategoryWeight struct {
	Name     string
	MaxScore int
}

// CategoryWeights are the six fixed scoring dimensions. Their maximum
// scores sum to 100.
var CategoryWeights = []CategoryWeight{
	{Name: "Security", MaxScore: 25},
	{Name: "Correctness", MaxScore: 20},
	{Name: "Gas Optimization", MaxScore: 15},
	{Name: "Code Quality", MaxScore: 15},
	{Name: "Best Practices", MaxScore: 15},
	{Name: "Documentation", MaxScore: 10},
}

// AuditResult is one stored audit report. It is created once per submission
// and immutable thereafter except for deletion.
type AuditResult struct {
	ID         uint            `json:"id" db:"id"`
	UserID     uint            `json:"user_id" db:"user_id"`
	Name       string          `json:"name" db:"name"`
	Code       string          `json:"code" db:"code"`
	SourceType SourceType      `json:"source_type" db:"source_type"`
	Score      int             `json:"score" db:"score"`
	Summary    string          `json:"summary" db:"summary"`
	Categories []AuditCategory `json:"categories" db:"result"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AggregateScore computes the normalized overall score from category scores:
// round(100 × Σ score / Σ max_score). Returns 0 for an empty category list.
func AggregateScore(categories []AuditCategory) int {
	var sum, max int
	for _, c := range categories {
		sum += c.Score
		max += c.MaxScore
	}
	if max == 0 {
		return 0
	}
	return int(math.Round(100 * float64(sum) / float64(max)))
}

// ScoreLabel maps an overall score to its qualitative label
func ScoreLabel(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Average"
	}
	return "Poor"
}

// Validate checks the structural invariants of a parsed audit report:
// category scores within bounds and every issue severity inside the closed
// enumeration. A nil Issues slice is rejected; an empty one is fine.
func (r *AuditResult) Validate() error {
	for i, c := range r.Categories {
		if c.Name == "" {
			return fmt.Errorf("category %d: missing name", i)
		}
		if c.MaxScore <= 0 {
			return fmt.Errorf("category %q: max_score must be positive", c.Name)
		}
		if c.Score < 0 || c.Score > c.MaxScore {
			return fmt.Errorf("category %q: score %d out of range [0, %d]", c.Name, c.Score, c.MaxScore)
		}
		if c.Issues == nil {
			return fmt.Errorf("category %q: missing issues list", c.Name)
		}
		for j, issue := range c.Issues {
			if issue.Title == "" {
				return fmt.Errorf("category %q issue %d: missing title", c.Name, j)
			}
			if _, err := ParseSeverity(string(issue.Severity)); err != nil {
				return fmt.Errorf("category %q issue %q: %w", c.Name, issue.Title, err)
			}
		}
	}
	return nil
}
