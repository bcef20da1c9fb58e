package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/mrwolf/parami/internal/models"
)

var baseDay = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return baseDay.AddDate(0, 0, offset)
}

// withResilience builds one reflection per level on consecutive days
func withResilience(levels ...models.ResilienceLevel) []models.StructuredReflection {
	out := make([]models.StructuredReflection, len(levels))
	for i, l := range levels {
		out[i] = models.StructuredReflection{
			Date:            day(i),
			ThemeID:         1,
			EmotionalState:  models.EmotionNeutral,
			ResilienceLevel: l,
		}
	}
	return out
}

// withArrows builds one reflection per flag on consecutive days
func withArrows(occurred ...bool) []models.StructuredReflection {
	out := make([]models.StructuredReflection, len(occurred))
	for i, o := range occurred {
		out[i] = models.StructuredReflection{
			Date:            day(i),
			ThemeID:         2,
			EmotionalState:  models.EmotionNeutral,
			ResilienceLevel: models.ResilienceStable,
			SecondArrow:     &models.SecondArrow{Occurred: o},
		}
	}
	return out
}

func repeat(level models.ResilienceLevel, n int) []models.ResilienceLevel {
	out := make([]models.ResilienceLevel, n)
	for i := range out {
		out[i] = level
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ============== Aggregate Tests ==============

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil); got != nil {
		t.Errorf("Aggregate(nil) = %+v, want nil", got)
	}
	if got := Aggregate([]models.StructuredReflection{}); got != nil {
		t.Errorf("Aggregate([]) = %+v, want nil", got)
	}
}

func TestAggregateSingleRecord(t *testing.T) {
	s := Aggregate([]models.StructuredReflection{{
		Date:            day(0),
		ThemeID:         5,
		EmotionalState:  models.EmotionJoyful,
		ResilienceLevel: models.ResilienceWavering,
	}})
	if s == nil {
		t.Fatal("expected a summary")
	}
	if s.ResilienceTrend != TrendStable || s.SecondArrow.Trend != TrendStable {
		t.Errorf("single record trends = (%s, %s), want stable", s.ResilienceTrend, s.SecondArrow.Trend)
	}
	if s.DominantEmotion != models.EmotionJoyful {
		t.Errorf("DominantEmotion = %s, want joyful", s.DominantEmotion)
	}
	if s.Patterns.Dominant != nil {
		t.Errorf("expected no dominant pattern, got %s", *s.Patterns.Dominant)
	}
	if s.Cultivation.Ratio != 0 {
		t.Errorf("ratio with no seeds = %v, want 0", s.Cultivation.Ratio)
	}
	if s.ThemeCounts[5] != 1 || s.TotalReflections != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
}

func TestAggregateSortsByDate(t *testing.T) {
	input := []models.StructuredReflection{
		{Date: day(2), EmotionalState: models.EmotionAgitated, ResilienceLevel: models.ResilienceStable},
		{Date: day(0), EmotionalState: models.EmotionPeaceful, ResilienceLevel: models.ResilienceStruggling},
		{Date: day(1), EmotionalState: models.EmotionJoyful, ResilienceLevel: models.ResilienceWavering},
	}

	s := Aggregate(input)
	want := []models.EmotionalState{models.EmotionPeaceful, models.EmotionJoyful, models.EmotionAgitated}
	for i, p := range s.Timeline {
		if p.EmotionalState != want[i] {
			t.Errorf("timeline[%d] = %s, want %s", i, p.EmotionalState, want[i])
		}
	}
	if s.FirstDate != "2025-03-01" || s.LastDate != "2025-03-03" {
		t.Errorf("date range = %s..%s", s.FirstDate, s.LastDate)
	}
	if input[0].Date != day(2) {
		t.Error("Aggregate reordered the caller's slice")
	}
}

// ============== Emotion Tests ==============

func TestDominantEmotion(t *testing.T) {
	mk := func(states ...models.EmotionalState) []models.StructuredReflection {
		out := make([]models.StructuredReflection, len(states))
		for i, s := range states {
			out[i] = models.StructuredReflection{Date: day(i), EmotionalState: s}
		}
		return out
	}

	tests := []struct {
		name   string
		states []models.EmotionalState
		want   models.EmotionalState
	}{
		{"clear winner", []models.EmotionalState{models.EmotionAgitated, models.EmotionJoyful, models.EmotionAgitated}, models.EmotionAgitated},
		{"tie goes to declaration order", []models.EmotionalState{models.EmotionJoyful, models.EmotionPeaceful}, models.EmotionPeaceful},
		{"tie regardless of input order", []models.EmotionalState{models.EmotionDistressed, models.EmotionNeutral, models.EmotionNeutral, models.EmotionDistressed}, models.EmotionNeutral},
		{"unknown states ignored", []models.EmotionalState{"bored", "bored", models.EmotionDistressed}, models.EmotionDistressed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DominantEmotion(mk(tt.states...)); got != tt.want {
				t.Errorf("DominantEmotion = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCountEmotionsOrder(t *testing.T) {
	counts := CountEmotions(nil)
	if len(counts) != len(models.EmotionalStates) {
		t.Fatalf("expected %d entries, got %d", len(models.EmotionalStates), len(counts))
	}
	for i, c := range counts {
		if c.State != models.EmotionalStates[i] || c.Count != 0 {
			t.Errorf("counts[%d] = %+v", i, c)
		}
	}
}

// ============== Resilience Tests ==============

func TestResilienceTrend(t *testing.T) {
	stable, wavering, struggling := models.ResilienceStable, models.ResilienceWavering, models.ResilienceStruggling

	tests := []struct {
		name   string
		levels []models.ResilienceLevel
		want   Trend
	}{
		{"fewer than four is stable", []models.ResilienceLevel{struggling, struggling, stable}, TrendStable},
		{"clear improvement", []models.ResilienceLevel{struggling, struggling, stable, stable}, TrendImproving},
		{"clear decline", []models.ResilienceLevel{stable, stable, struggling, struggling}, TrendDeclining},
		{"just under threshold", append(repeat(wavering, 11), stable), TrendStable},                            // +0.167
		{"just over threshold", append(repeat(wavering, 10), stable, stable), TrendImproving},                  // +0.333
		{"just over threshold down", append(repeat(wavering, 10), struggling, struggling), TrendDeclining},     // -0.333
		{"odd count uses floor split", []models.ResilienceLevel{stable, stable, struggling, stable, stable}, TrendDeclining}, // 3.0 vs 2.33
		{"flat", repeat(wavering, 8), TrendStable},
		{"exactly at threshold", append(repeat(wavering, 9), stable), TrendStable},         // 2.0 vs 2.2
		{"exactly at threshold down", append(repeat(wavering, 9), struggling), TrendStable}, // 2.0 vs 1.8
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResilienceTrend(withResilience(tt.levels...)); got != tt.want {
				t.Errorf("ResilienceTrend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResilienceValue(t *testing.T) {
	if ResilienceValue(models.ResilienceStable) != 3 ||
		ResilienceValue(models.ResilienceWavering) != 2 ||
		ResilienceValue(models.ResilienceStruggling) != 1 ||
		ResilienceValue("unknown") != 0 {
		t.Error("unexpected resilience scale")
	}
}

// ============== Cultivation Tests ==============

func TestCultivationCountsDaysWithoutLog(t *testing.T) {
	records := []models.StructuredReflection{
		{Date: day(0), Cultivation: &models.CultivationLog{Wholesome: []string{"joy"}, Unwholesome: []string{}}},
		{Date: day(1), Cultivation: &models.CultivationLog{Wholesome: []string{"joy"}, Unwholesome: []string{}}},
		{Date: day(2)},
	}

	got := Cultivation(records)
	if got.TotalDays != 3 {
		t.Errorf("TotalDays = %d, want 3", got.TotalDays)
	}
	if got.WholesomeSeedsCount != 2 || got.UnwholesomeSeedsCount != 0 {
		t.Errorf("seed counts = (%d, %d), want (2, 0)", got.WholesomeSeedsCount, got.UnwholesomeSeedsCount)
	}
	if got.Ratio != 1.0 {
		t.Errorf("Ratio = %v, want 1.0", got.Ratio)
	}
	if !approx(got.AverageWholesomePerDay, 2.0/3.0) {
		t.Errorf("AverageWholesomePerDay = %v, want 2/3", got.AverageWholesomePerDay)
	}
	if got.AverageUnwholesomePerDay != 0 {
		t.Errorf("AverageUnwholesomePerDay = %v, want 0", got.AverageUnwholesomePerDay)
	}
}

func TestCultivationRatio(t *testing.T) {
	records := []models.StructuredReflection{
		{Date: day(0), Cultivation: &models.CultivationLog{Wholesome: []string{"joy", "patience", "gratitude"}, Unwholesome: []string{"anger"}}},
		{Date: day(1), Cultivation: &models.CultivationLog{Unwholesome: []string{"envy"}}},
		{Date: day(2)},
		{Date: day(3)},
	}
	got := Cultivation(records)
	if !approx(got.Ratio, 0.6) {
		t.Errorf("Ratio = %v, want 0.6", got.Ratio)
	}
	if !approx(got.AverageWholesomePerDay, 0.75) || !approx(got.AverageUnwholesomePerDay, 0.5) {
		t.Errorf("averages = (%v, %v), want (0.75, 0.5)", got.AverageWholesomePerDay, got.AverageUnwholesomePerDay)
	}
}

// ============== Pattern Tests ==============

func TestPatterns(t *testing.T) {
	records := []models.StructuredReflection{
		{Date: day(0), Patterns: &models.PatternAudit{Form: true, Speech: true}},
		{Date: day(1), Patterns: &models.PatternAudit{Speech: true}},
		{Date: day(2)},
		{Date: day(3), Patterns: &models.PatternAudit{Mind: true, Form: true}},
	}

	got := Patterns(records)
	if got.FormCount != 2 || got.SpeechCount != 2 || got.MindCount != 1 {
		t.Errorf("counts = (%d, %d, %d), want (2, 2, 1)", got.FormCount, got.SpeechCount, got.MindCount)
	}
	// Denominator is every record, not just audited ones
	if !approx(got.FormPercent, 50) || !approx(got.MindPercent, 25) {
		t.Errorf("percents = (%v, %v, %v)", got.FormPercent, got.SpeechPercent, got.MindPercent)
	}
	if got.Dominant == nil || *got.Dominant != PatternForm {
		t.Errorf("Dominant = %v, want form on a form/speech tie", got.Dominant)
	}
}

func TestPatternsDominantAndNone(t *testing.T) {
	records := []models.StructuredReflection{
		{Date: day(0), Patterns: &models.PatternAudit{Mind: true}},
		{Date: day(1), Patterns: &models.PatternAudit{Mind: true, Speech: true}},
	}
	got := Patterns(records)
	if got.Dominant == nil || *got.Dominant != PatternMind {
		t.Errorf("Dominant = %v, want mind", got.Dominant)
	}

	none := Patterns([]models.StructuredReflection{{Date: day(0), Patterns: &models.PatternAudit{}}, {Date: day(1)}})
	if none.Dominant != nil {
		t.Errorf("Dominant = %s, want nil", *none.Dominant)
	}
}

// ============== Second Arrow Tests ==============

func TestSecondArrow(t *testing.T) {
	tests := []struct {
		name     string
		occurred []bool
		want     Trend
		percent  float64
	}{
		{"fewer than six is stable", []bool{true, true, false, false, false}, TrendStable, 40},
		{"fewer occurrences is improving", []bool{true, true, false, false, false, false}, TrendImproving, 100.0 / 3},
		{"more occurrences is worsening", []bool{false, false, false, true, true, false}, TrendWorsening, 100.0 / 3},
		{"even spread is stable", []bool{true, false, false, true, false, false}, TrendStable, 100.0 / 3},
		{
			"exactly ten point rise is stable",
			[]bool{true, false, false, false, false, false, false, false, false, false, true, true, false, false, false, false, false, false, false, false},
			TrendStable, 15,
		},
		{
			"exactly ten point fall is stable",
			[]bool{true, true, false, false, false, false, false, false, false, false, true, false, false, false, false, false, false, false, false, false},
			TrendStable, 15,
		},
		{
			"twenty point rise is worsening",
			[]bool{true, false, false, false, false, false, false, false, false, false, true, true, true, false, false, false, false, false, false, false},
			TrendWorsening, 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SecondArrow(withArrows(tt.occurred...))
			if got.Trend != tt.want {
				t.Errorf("Trend = %s, want %s", got.Trend, tt.want)
			}
			if !approx(got.FrequencyPercent, tt.percent) {
				t.Errorf("FrequencyPercent = %v, want %v", got.FrequencyPercent, tt.percent)
			}
		})
	}
}

func TestSecondArrowMissingSubRecords(t *testing.T) {
	records := withArrows(true, true)
	records = append(records, models.StructuredReflection{Date: day(5)}, models.StructuredReflection{Date: day(6)})

	got := SecondArrow(records)
	if got.Occurrences != 2 || !approx(got.FrequencyPercent, 50) {
		t.Errorf("got %+v, want 2 occurrences at 50%%", got)
	}
}
