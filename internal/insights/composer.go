package insights

import (
	"fmt"

	"github.com/mrwolf/parami/internal/models"
	"github.com/mrwolf/parami/internal/scoring"
)

// ActivitiesPerTheme is how many base activities each growth theme contributes
const ActivitiesPerTheme = 2

// MaxRecommendations caps the recommended activity list
const MaxRecommendations = 10

// ThemeSource supplies theme content by id
type ThemeSource interface {
	Theme(id int) (*models.Theme, error)
}

// Group is a selection of theme scores plus the data the results view
// renders for them. TeachingKeys are opaque identifiers for copy owned by
// the presentation layer.
type Group struct {
	Scores       []models.ThemeScore `json:"scores"`
	TeachingKeys []string            `json:"teaching_keys"`
	Recommended  []models.Activity   `json:"recommended_activities,omitempty"`
}

// Insights is the selection behind a quiz results view
type Insights struct {
	Strengths  Group            `json:"strengths"`
	Developing Group            `json:"developing"`
	Overall    int              `json:"overall_score"`
	Assessment scoring.Category `json:"overall_assessment"`
}

// Composer selects strength and growth groupings from quiz scores
type Composer struct {
	themes ThemeSource
	topN   int
}

// NewComposer creates a composer highlighting scoring.DefaultTopN themes per group
func NewComposer(themes ThemeSource) *Composer {
	return &Composer{themes: themes, topN: scoring.DefaultTopN}
}

// WithTopN returns a copy of the composer that highlights n themes per group
func (c *Composer) WithTopN(n int) *Composer {
	cp := *c
	cp.topN = n
	return &cp
}

// Compose builds the strength and developing groups for a set of scores
func (c *Composer) Compose(scores []models.ThemeScore) (*Insights, error) {
	strengths := scoring.TopN(scores, c.topN, scoring.Highest)
	developing := scoring.TopN(scores, c.topN, scoring.Lowest)

	recommended, err := c.recommend(developing)
	if err != nil {
		return nil, err
	}

	return &Insights{
		Strengths: Group{
			Scores:       strengths,
			TeachingKeys: teachingKeys(strengths, "strength"),
		},
		Developing: Group{
			Scores:       developing,
			TeachingKeys: teachingKeys(developing, "growth"),
			Recommended:  recommended,
		},
		Overall:    scoring.Overall(scores),
		Assessment: OverallAssessment(scores),
	}, nil
}

func (c *Composer) recommend(scores []models.ThemeScore) ([]models.Activity, error) {
	var out []models.Activity
	for _, s := range scores {
		theme, err := c.themes.Theme(s.ThemeID)
		if err != nil {
			return nil, fmt.Errorf("recommending for theme %d: %w", s.ThemeID, err)
		}
		for i, a := range theme.Activities {
			if i >= ActivitiesPerTheme || len(out) >= MaxRecommendations {
				break
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func teachingKeys(scores []models.ThemeScore, kind string) []string {
	keys := make([]string, 0, len(scores))
	for _, s := range scores {
		keys = append(keys, fmt.Sprintf("theme.%d.%s", s.ThemeID, kind))
	}
	return keys
}

// OverallAssessment buckets the mean score with the same bands as scoring.CategoryOf
func OverallAssessment(scores []models.ThemeScore) scoring.Category {
	return scoring.CategoryOf(scoring.Overall(scores))
}
