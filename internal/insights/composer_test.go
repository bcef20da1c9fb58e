package insights

import (
	"errors"
	"testing"

	"github.com/mrwolf/parami/internal/content"
	"github.com/mrwolf/parami/internal/models"
	"github.com/mrwolf/parami/internal/scoring"
)

func fullQuiz(t *testing.T) []models.ThemeScore {
	t.Helper()
	responses := []models.QuizResponse{
		{ThemeID: 1, Strength: 5, Weakness: 1},  // 100
		{ThemeID: 2, Strength: 4, Weakness: 2},  // 75
		{ThemeID: 3, Strength: 3, Weakness: 3},  // 50
		{ThemeID: 4, Strength: 2, Weakness: 4},  // 25
		{ThemeID: 5, Strength: 1, Weakness: 5},  // 0
		{ThemeID: 6, Strength: 4, Weakness: 1},  // 88
		{ThemeID: 7, Strength: 3, Weakness: 4},  // 38
		{ThemeID: 8, Strength: 3, Weakness: 2},  // 63
		{ThemeID: 9, Strength: 2, Weakness: 5},  // 13
		{ThemeID: 10, Strength: 4, Weakness: 4}, // 50
	}
	scores, err := scoring.ScoreAll(responses)
	if err != nil {
		t.Fatalf("scoring: %v", err)
	}
	return scores
}

func TestCompose(t *testing.T) {
	c := NewComposer(content.MustDefault())

	got, err := c.Compose(fullQuiz(t))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	wantStrong := []int{1, 6, 2}
	for i, s := range got.Strengths.Scores {
		if s.ThemeID != wantStrong[i] {
			t.Errorf("strength[%d] = theme %d, want %d", i, s.ThemeID, wantStrong[i])
		}
	}
	wantDev := []int{5, 9, 4}
	for i, s := range got.Developing.Scores {
		if s.ThemeID != wantDev[i] {
			t.Errorf("developing[%d] = theme %d, want %d", i, s.ThemeID, wantDev[i])
		}
	}

	if got.Strengths.TeachingKeys[0] != "theme.1.strength" {
		t.Errorf("unexpected teaching key %q", got.Strengths.TeachingKeys[0])
	}
	if got.Developing.TeachingKeys[2] != "theme.4.growth" {
		t.Errorf("unexpected teaching key %q", got.Developing.TeachingKeys[2])
	}

	if len(got.Strengths.Recommended) != 0 {
		t.Error("strength group should carry no recommendations")
	}
	if len(got.Developing.Recommended) != 6 {
		t.Fatalf("expected 2 activities for each of 3 themes, got %d", len(got.Developing.Recommended))
	}
	energy, _ := content.MustDefault().Theme(5)
	if got.Developing.Recommended[0].ID != energy.Activities[0].ID ||
		got.Developing.Recommended[1].ID != energy.Activities[1].ID {
		t.Error("recommendations should start with the weakest theme's base activities")
	}

	// (100+75+50+25+0+88+38+63+13+50)/10 = 50.2
	if got.Overall != 50 {
		t.Errorf("Overall = %d, want 50", got.Overall)
	}
	if got.Assessment != scoring.CategoryModerate {
		t.Errorf("Assessment = %s, want moderate", got.Assessment)
	}
}

func TestComposeCapsRecommendations(t *testing.T) {
	c := NewComposer(content.MustDefault()).WithTopN(content.ThemeCount)

	got, err := c.Compose(fullQuiz(t))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(got.Developing.Recommended) != MaxRecommendations {
		t.Errorf("expected %d recommendations, got %d", MaxRecommendations, len(got.Developing.Recommended))
	}
}

func TestComposeUnknownTheme(t *testing.T) {
	c := NewComposer(content.MustDefault())
	_, err := c.Compose([]models.ThemeScore{{ThemeID: 42, Score: 10}})
	if !errors.Is(err, content.ErrUnknownTheme) {
		t.Errorf("expected ErrUnknownTheme, got %v", err)
	}
}

func TestOverallAssessment(t *testing.T) {
	tests := []struct {
		scores []int
		want   scoring.Category
	}{
		{[]int{70, 70}, scoring.CategoryStrong},
		{[]int{69, 70}, scoring.CategoryStrong}, // 69.5 rounds to 70
		{[]int{69, 68}, scoring.CategoryModerate},
		{[]int{50}, scoring.CategoryModerate},
		{[]int{49}, scoring.CategoryDeveloping},
		{nil, scoring.CategoryDeveloping},
	}
	for _, tt := range tests {
		var scores []models.ThemeScore
		for _, s := range tt.scores {
			scores = append(scores, models.ThemeScore{Score: s})
		}
		if got := OverallAssessment(scores); got != tt.want {
			t.Errorf("OverallAssessment(%v) = %s, want %s", tt.scores, got, tt.want)
		}
	}
}
