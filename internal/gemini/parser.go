package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"solaudit/internal/models"
)

// ErrMalformedResponse is returned when the completion text cannot be parsed
// against the report schema. Malformed or partial reports are rejected
// outright; nothing is coerced to defaults.
var ErrMalformedResponse = errors.New("malformed audit response")

var fencedJSON = regexp.MustCompile("```(?:json)?\n?([\\s\\S]*?)\n?```")

// Payload structures with pointer fields so that absent required fields are
// distinguishable from zero values.

type reportPayload struct {
	Score      *int              `json:"score"`
	Summary    *string           `json:"summary"`
	Categories []categoryPayload `json:"categories"`
}

type categoryPayload struct {
	Name        *string        `json:"name"`
	Score       *int           `json:"score"`
	MaxScore    *int           `json:"max_score"`
	Description *string        `json:"description"`
	Issues      []issuePayload `json:"issues"`
}

type issuePayload struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Severity       *string `json:"severity"`
	CodeReference  string  `json:"code_reference"`
	Recommendation *string `json:"recommendation"`
}

// ParseReport parses a completion text into a validated audit result
// carrying summary and categories. Markdown code fences around the JSON are
// tolerated; schema violations are not.
func ParseReport(text string) (*models.AuditResult, error) {
	payload, err := decode(text)
	if err != nil {
		return nil, err
	}

	if payload.Score == nil || payload.Summary == nil || payload.Categories == nil {
		return nil, fmt.Errorf("%w: missing score, summary, or categories", ErrMalformedResponse)
	}
	if len(payload.Categories) == 0 {
		return nil, fmt.Errorf("%w: empty categories", ErrMalformedResponse)
	}

	result := &models.AuditResult{
		Summary:    *payload.Summary,
		Categories: make([]models.AuditCategory, 0, len(payload.Categories)),
	}

	for i, c := range payload.Categories {
		if c.Name == nil || c.Score == nil || c.MaxScore == nil || c.Description == nil || c.Issues == nil {
			return nil, fmt.Errorf("%w: category %d is missing required fields", ErrMalformedResponse, i)
		}

		category := models.AuditCategory{
			Name:        *c.Name,
			Score:       *c.Score,
			MaxScore:    *c.MaxScore,
			Description: *c.Description,
			Issues:      make([]models.AuditIssue, 0, len(c.Issues)),
		}

		for j, issue := range c.Issues {
			if issue.Title == nil || issue.Description == nil || issue.Severity == nil || issue.Recommendation == nil {
				return nil, fmt.Errorf("%w: category %q issue %d is missing required fields",
					ErrMalformedResponse, category.Name, j)
			}
			severity, err := models.ParseSeverity(*issue.Severity)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			category.Issues = append(category.Issues, models.AuditIssue{
				Title:          *issue.Title,
				Description:    *issue.Description,
				Severity:       severity,
				CodeReference:  issue.CodeReference,
				Recommendation: *issue.Recommendation,
			})
		}

		result.Categories = append(result.Categories, category)
	}

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// The overall score is always recomputed from categories so the stored
	// value satisfies the aggregate invariant regardless of what the model
	// reported.
	result.Score = models.AggregateScore(result.Categories)

	return result, nil
}

// decode unmarshals the completion text, stripping markdown fences if present
func decode(text string) (*reportPayload, error) {
	var payload reportPayload
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return &payload, nil
	}

	if matches := fencedJSON.FindStringSubmatch(text); len(matches) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), &payload); err == nil {
			return &payload, nil
		}
	}

	cleaned := cleanResponse(text)
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &payload, nil
}

// cleanResponse trims fence markers and clamps the text to the outermost braces
func cleanResponse(text string) string {
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}
