package report

import (
	"sort"

	"solaudit/internal/models"
)

// Breakdown is the read-only rendering view of an audit: overall score with
// its qualitative label, per-category percentages, and issues ordered by
// decreasing risk. It carries no state of its own; building one has no side
// effects.
type Breakdown struct {
	Score       int                     `json:"score"`
	Label       string                  `json:"label"`
	IssueCounts map[models.Severity]int `json:"issue_counts"`
	Categories  []CategoryBreakdown     `json:"categories"`
}

// CategoryBreakdown is one category row of the breakdown
type CategoryBreakdown struct {
	Name        string              `json:"name"`
	Score       int                 `json:"score"`
	MaxScore    int                 `json:"max_score"`
	Percent     int                 `json:"percent"`
	Description string              `json:"description"`
	Issues      []models.AuditIssue `json:"issues"`
}

// NewBreakdown builds the rendering view for an audit. The overall score is
// recomputed from the categories, and issues within each category are sorted
// highest risk first.
func NewBreakdown(audit *models.AuditResult) *Breakdown {
	score := models.AggregateScore(audit.Categories)

	b := &Breakdown{
		Score:       score,
		Label:       models.ScoreLabel(score),
		IssueCounts: make(map[models.Severity]int),
		Categories:  make([]CategoryBreakdown, 0, len(audit.Categories)),
	}

	for _, cat := range audit.Categories {
		issues := make([]models.AuditIssue, len(cat.Issues))
		copy(issues, cat.Issues)
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].Severity.Rank() > issues[j].Severity.Rank()
		})

		for _, issue := range issues {
			b.IssueCounts[issue.Severity]++
		}

		percent := 0
		if cat.MaxScore > 0 {
			percent = int(float64(cat.Score)/float64(cat.MaxScore)*100 + 0.5)
		}

		b.Categories = append(b.Categories, CategoryBreakdown{
			Name:        cat.Name,
			Score:       cat.Score,
			MaxScore:    cat.MaxScore,
			Percent:     percent,
			Description: cat.Description,
			Issues:      issues,
		})
	}

	return b
}
