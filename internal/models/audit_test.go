package models

import (
	"testing"
)

func TestAggregateScore(t *testing.T) {
	tests := []struct {
		name       string
		categories []AuditCategory
		expected   int
	}{
		{
			name: "two categories",
			categories: []AuditCategory{
				{Name: "Security", Score: 18, MaxScore: 25},
				{Name: "Gas Optimization", Score: 10, MaxScore: 15},
			},
			expected: 70, // round(100 * 28/40)
		},
		{
			name: "perfect score",
			categories: []AuditCategory{
				{Name: "Security", Score: 25, MaxScore: 25},
				{Name: "Documentation", Score: 10, MaxScore: 10},
			},
			expected: 100,
		},
		{
			name: "rounding up",
			categories: []AuditCategory{
				{Name: "Security", Score: 2, MaxScore: 3},
			},
			expected: 67, // round(66.66...)
		},
		{
			name:       "no categories",
			categories: nil,
			expected:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateScore(tt.categories); got != tt.expected {
				t.Errorf("AggregateScore() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestScoreLabel(t *testing.T) {
	tests := []struct {
		score    int
		expected string
	}{
		{95, "Excellent"},
		{90, "Excellent"},
		{89, "Good"},
		{75, "Good"},
		{70, "Average"},
		{60, "Average"},
		{59, "Poor"},
		{0, "Poor"},
	}

	for _, tt := range tests {
		if got := ScoreLabel(tt.score); got != tt.expected {
			t.Errorf("ScoreLabel(%d) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}

func TestAggregateScoreSampleIsAverage(t *testing.T) {
	categories := []AuditCategory{
		{Name: "Security", Score: 18, MaxScore: 25},
		{Name: "Gas Optimization", Score: 10, MaxScore: 15},
	}

	score := AggregateScore(categories)
	if score != 70 {
		t.Fatalf("expected score 70, got %d", score)
	}
	if label := ScoreLabel(score); label != "Average" {
		t.Errorf("expected label Average, got %q", label)
	}
}

func TestParseSeverity(t *testing.T) {
	valid := []string{"high", "medium", "low", "info", "safe"}
	for _, s := range valid {
		if _, err := ParseSeverity(s); err != nil {
			t.Errorf("ParseSeverity(%q) returned error: %v", s, err)
		}
	}

	invalid := []string{"", "critical", "HIGH", "warning"}
	for _, s := range invalid {
		if _, err := ParseSeverity(s); err == nil {
			t.Errorf("ParseSeverity(%q) should have returned an error", s)
		}
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	ordered := []Severity{SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo, SeveritySafe}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() <= ordered[i].Rank() {
			t.Errorf("expected %s to rank above %s", ordered[i-1], ordered[i])
		}
	}
}

func TestSeverityColors(t *testing.T) {
	tests := []struct {
		severity Severity
		expected RGB
	}{
		{SeverityHigh, RGB{220, 53, 69}},
		{SeverityMedium, RGB{255, 193, 7}},
		{SeverityLow, RGB{40, 167, 69}},
		{SeveritySafe, RGB{40, 167, 69}},
		{SeverityInfo, RGB{13, 110, 253}},
		{Severity("bogus"), RGB{108, 117, 125}},
	}

	for _, tt := range tests {
		if got := tt.severity.Color(); got != tt.expected {
			t.Errorf("Color(%q) = %v, want %v", tt.severity, got, tt.expected)
		}
	}
}

func TestCategoryWeightsSumTo100(t *testing.T) {
	sum := 0
	for _, w := range CategoryWeights {
		sum += w.MaxScore
	}
	if sum != 100 {
		t.Errorf("category weights sum to %d, want 100", sum)
	}
}

func TestAuditResultValidate(t *testing.T) {
	valid := &AuditResult{
		Categories: []AuditCategory{
			{
				Name:     "Security",
				Score:    20,
				MaxScore: 25,
				Issues: []AuditIssue{
					{Title: "Reentrancy in withdraw", Severity: SeverityHigh, Recommendation: "Use checks-effects-interactions"},
				},
			},
			{Name: "Documentation", Score: 8, MaxScore: 10, Issues: []AuditIssue{}},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid result failed validation: %v", err)
	}

	tests := []struct {
		name   string
		result *AuditResult
	}{
		{
			name: "score above max",
			result: &AuditResult{Categories: []AuditCategory{
				{Name: "Security", Score: 30, MaxScore: 25, Issues: []AuditIssue{}},
			}},
		},
		{
			name: "negative score",
			result: &AuditResult{Categories: []AuditCategory{
				{Name: "Security", Score: -1, MaxScore: 25, Issues: []AuditIssue{}},
			}},
		},
		{
			name: "missing issues list",
			result: &AuditResult{Categories: []AuditCategory{
				{Name: "Security", Score: 20, MaxScore: 25},
			}},
		},
		{
			name: "unknown severity",
			result: &AuditResult{Categories: []AuditCategory{
				{Name: "Security", Score: 20, MaxScore: 25, Issues: []AuditIssue{
					{Title: "Something", Severity: "critical"},
				}},
			}},
		},
		{
			name: "missing category name",
			result: &AuditResult{Categories: []AuditCategory{
				{Score: 20, MaxScore: 25, Issues: []AuditIssue{}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.result.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
