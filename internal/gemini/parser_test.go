package gemini

import (
	"errors"
	"strings"
	"testing"

	"solaudit/internal/models"
)

const validReport = `{
	"score": 70,
	"summary": "The contract is broadly sound with a reentrancy concern.",
	"categories": [
		{
			"name": "Security",
			"score": 18,
			"max_score": 25,
			"description": "One high severity finding.",
			"issues": [
				{
					"title": "Reentrancy in withdraw",
					"description": "External call before state update.",
					"severity": "high",
					"code_reference": "withdraw(), line 42",
					"recommendation": "Apply checks-effects-interactions."
				}
			]
		},
		{
			"name": "Gas Optimization",
			"score": 10,
			"max_score": 15,
			"description": "Minor storage inefficiencies.",
			"issues": []
		}
	]
}`

func TestParseReport(t *testing.T) {
	result, err := ParseReport(validReport)
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}

	if len(result.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(result.Categories))
	}
	if result.Summary == "" {
		t.Error("expected non-empty summary")
	}
	if len(result.Categories[0].Issues) != 1 {
		t.Fatalf("expected 1 issue in first category, got %d", len(result.Categories[0].Issues))
	}
	if result.Categories[0].Issues[0].Severity != models.SeverityHigh {
		t.Errorf("expected high severity, got %s", result.Categories[0].Issues[0].Severity)
	}

	// Score is recomputed from categories, not taken from the model
	if result.Score != 70 {
		t.Errorf("expected normalized score 70, got %d", result.Score)
	}
}

func TestParseReportNormalizesScore(t *testing.T) {
	// The model reports 99 but the categories say 70
	text := strings.Replace(validReport, `"score": 70`, `"score": 99`, 1)

	result, err := ParseReport(text)
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}
	if result.Score != 70 {
		t.Errorf("expected score recomputed to 70, got %d", result.Score)
	}
}

func TestParseReportWithMarkdownFences(t *testing.T) {
	fenced := "```json\n" + validReport + "\n```"

	result, err := ParseReport(fenced)
	if err != nil {
		t.Fatalf("ParseReport failed on fenced JSON: %v", err)
	}
	if len(result.Categories) != 2 {
		t.Errorf("expected 2 categories, got %d", len(result.Categories))
	}
}

func TestParseReportWithSurroundingProse(t *testing.T) {
	text := "Here is the audit you asked for:\n" + validReport + "\nLet me know if you need more."

	result, err := ParseReport(text)
	if err != nil {
		t.Fatalf("ParseReport failed on prose-wrapped JSON: %v", err)
	}
	if result.Score != 70 {
		t.Errorf("expected score 70, got %d", result.Score)
	}
}

func TestParseReportRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "the contract looks fine to me"},
		{"empty", ""},
		{"missing summary", `{"score": 70, "categories": []}`},
		{"missing categories", `{"score": 70, "summary": "ok"}`},
		{"empty categories", `{"score": 70, "summary": "ok", "categories": []}`},
		{
			"category missing issues",
			`{"score": 70, "summary": "ok", "categories": [
				{"name": "Security", "score": 18, "max_score": 25, "description": "x"}
			]}`,
		},
		{
			"issue missing severity",
			`{"score": 70, "summary": "ok", "categories": [
				{"name": "Security", "score": 18, "max_score": 25, "description": "x", "issues": [
					{"title": "t", "description": "d", "recommendation": "r"}
				]}
			]}`,
		},
		{
			"unknown severity",
			`{"score": 70, "summary": "ok", "categories": [
				{"name": "Security", "score": 18, "max_score": 25, "description": "x", "issues": [
					{"title": "t", "description": "d", "severity": "critical", "recommendation": "r"}
				]}
			]}`,
		},
		{
			"score above max",
			`{"score": 70, "summary": "ok", "categories": [
				{"name": "Security", "score": 30, "max_score": 25, "description": "x", "issues": []}
			]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReport(tt.text)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestBuildPromptEmbedsCodeAndWeights(t *testing.T) {
	code := "contract Vault { function withdraw() public {} }"
	prompt := BuildPrompt(code)

	if !strings.Contains(prompt, code) {
		t.Error("prompt should embed the source code")
	}
	for _, w := range models.CategoryWeights {
		if !strings.Contains(prompt, w.Name) {
			t.Errorf("prompt should name category %q", w.Name)
		}
	}
}
