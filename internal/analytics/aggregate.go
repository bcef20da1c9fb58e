package analytics

import (
	"sort"

	"github.com/mrwolf/parami/internal/models"
)

// Trend is the direction of a signal across the two halves of the history
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

// Minimum history lengths before a trend is computed instead of reported stable
const (
	MinResilienceRecords  = 4
	MinSecondArrowRecords = 6
)

// Thresholds on the second-half minus first-half difference
const (
	ResilienceThreshold  = 0.2  // on the 1..3 resilience scale
	SecondArrowThreshold = 10.0 // percentage points
)

// The same thresholds as exact fractions. Trends compare integer sums so a
// difference of exactly the threshold stays stable.
var (
	resilienceThreshold  = fraction{1, 5}
	secondArrowThreshold = fraction{1, 10} // of the occurrence rate
)

// TimelinePoint is one day of the emotional timeline
type TimelinePoint struct {
	Date            string                 `json:"date"`
	ThemeID         int                    `json:"theme_id"`
	EmotionalState  models.EmotionalState  `json:"emotional_state"`
	ResilienceLevel models.ResilienceLevel `json:"resilience_level"`
}

// EmotionCount is the number of days reported in one emotional state
type EmotionCount struct {
	State models.EmotionalState `json:"state"`
	Count int                   `json:"count"`
}

// CultivationStats summarises wholesome and unwholesome seeds
type CultivationStats struct {
	TotalDays                int     `json:"total_days"`
	WholesomeSeedsCount      int     `json:"wholesome_seeds_count"`
	UnwholesomeSeedsCount    int     `json:"unwholesome_seeds_count"`
	Ratio                    float64 `json:"ratio"`
	AverageWholesomePerDay   float64 `json:"average_wholesome_per_day"`
	AverageUnwholesomePerDay float64 `json:"average_unwholesome_per_day"`
}

// Pattern names one of the self-deception flags
type Pattern string

const (
	PatternForm   Pattern = "form"
	PatternSpeech Pattern = "speech"
	PatternMind   Pattern = "mind"
)

// PatternStats holds how often each self-deception pattern was flagged
type PatternStats struct {
	FormCount     int      `json:"form_count"`
	SpeechCount   int      `json:"speech_count"`
	MindCount     int      `json:"mind_count"`
	FormPercent   float64  `json:"form_percent"`
	SpeechPercent float64  `json:"speech_percent"`
	MindPercent   float64  `json:"mind_percent"`
	Dominant      *Pattern `json:"dominant_pattern"`
}

// SecondArrowStats holds the frequency and direction of self-inflicted distress
type SecondArrowStats struct {
	Occurrences      int     `json:"occurrences"`
	FrequencyPercent float64 `json:"frequency_percent"`
	Trend            Trend   `json:"trend"`
}

// Summary is the analytics view over a reflection history
type Summary struct {
	TotalReflections int                   `json:"total_reflections"`
	FirstDate        string                `json:"first_date"`
	LastDate         string                `json:"last_date"`
	Timeline         []TimelinePoint       `json:"timeline"`
	EmotionCounts    []EmotionCount        `json:"emotion_counts"`
	DominantEmotion  models.EmotionalState `json:"dominant_emotion"`
	ResilienceTrend  Trend                 `json:"resilience_trend"`
	Cultivation      CultivationStats      `json:"cultivation"`
	Patterns         PatternStats          `json:"patterns"`
	SecondArrow      SecondArrowStats      `json:"second_arrow"`
	ThemeCounts      map[int]int           `json:"theme_counts"`
}

// Aggregate computes the analytics summary. It returns nil for an empty history.
// Records lacking an optional sub-record still count toward every denominator.
func Aggregate(reflections []models.StructuredReflection) *Summary {
	if len(reflections) == 0 {
		return nil
	}

	sorted := SortByDate(reflections)
	counts := CountEmotions(sorted)

	summary := &Summary{
		TotalReflections: len(sorted),
		FirstDate:        sorted[0].Date.Format(models.DateLayout),
		LastDate:         sorted[len(sorted)-1].Date.Format(models.DateLayout),
		Timeline:         Timeline(sorted),
		EmotionCounts:    counts,
		DominantEmotion:  dominantEmotion(counts),
		ResilienceTrend:  ResilienceTrend(sorted),
		Cultivation:      Cultivation(sorted),
		Patterns:         Patterns(sorted),
		SecondArrow:      SecondArrow(sorted),
		ThemeCounts:      make(map[int]int),
	}
	for _, r := range sorted {
		summary.ThemeCounts[r.ThemeID]++
	}
	return summary
}

// SortByDate returns a copy of reflections ordered by ascending date.
// Records on the same date keep their input order.
func SortByDate(reflections []models.StructuredReflection) []models.StructuredReflection {
	sorted := make([]models.StructuredReflection, len(reflections))
	copy(sorted, reflections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// Timeline projects each record to its date, emotional state and resilience
func Timeline(sorted []models.StructuredReflection) []TimelinePoint {
	points := make([]TimelinePoint, len(sorted))
	for i, r := range sorted {
		points[i] = TimelinePoint{
			Date:            r.Date.Format(models.DateLayout),
			ThemeID:         r.ThemeID,
			EmotionalState:  r.EmotionalState,
			ResilienceLevel: r.ResilienceLevel,
		}
	}
	return points
}

// CountEmotions counts days per emotional state, in declaration order
func CountEmotions(reflections []models.StructuredReflection) []EmotionCount {
	tally := make(map[models.EmotionalState]int)
	for _, r := range reflections {
		tally[r.EmotionalState]++
	}
	out := make([]EmotionCount, len(models.EmotionalStates))
	for i, s := range models.EmotionalStates {
		out[i] = EmotionCount{State: s, Count: tally[s]}
	}
	return out
}

// DominantEmotion returns the most frequent state. Ties go to the state
// declared first in models.EmotionalStates.
func DominantEmotion(reflections []models.StructuredReflection) models.EmotionalState {
	return dominantEmotion(CountEmotions(reflections))
}

func dominantEmotion(counts []EmotionCount) models.EmotionalState {
	var dominant models.EmotionalState
	max := 0
	for _, c := range counts {
		if c.Count > max {
			dominant = c.State
			max = c.Count
		}
	}
	return dominant
}

// ResilienceValue maps a resilience level onto 1..3. Unknown levels map to 0.
func ResilienceValue(level models.ResilienceLevel) float64 {
	switch level {
	case models.ResilienceStable:
		return 3
	case models.ResilienceWavering:
		return 2
	case models.ResilienceStruggling:
		return 1
	}
	return 0
}

// ResilienceTrend compares mean resilience of the later half of the history
// with the earlier half. The first half is the first floor(n/2) records.
// Fewer than MinResilienceRecords records is always stable.
func ResilienceTrend(sorted []models.StructuredReflection) Trend {
	if len(sorted) < MinResilienceRecords {
		return TrendStable
	}
	first, second := splitHalves(sorted)

	switch compareMeans(sumResilience(first), len(first), sumResilience(second), len(second), resilienceThreshold) {
	case 1:
		return TrendImproving
	case -1:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func sumResilience(records []models.StructuredReflection) int {
	sum := 0
	for _, r := range records {
		sum += int(ResilienceValue(r.ResilienceLevel))
	}
	return sum
}

type fraction struct{ num, den int }

// compareMeans returns 1 when sum2/n2 - sum1/n1 exceeds t, -1 when it is
// below -t and 0 otherwise. Both counts must be positive.
func compareMeans(sum1, n1, sum2, n2 int, t fraction) int {
	lhs := t.den * (sum2*n1 - sum1*n2)
	rhs := t.num * n1 * n2
	switch {
	case lhs > rhs:
		return 1
	case lhs < -rhs:
		return -1
	}
	return 0
}

func splitHalves(sorted []models.StructuredReflection) (first, second []models.StructuredReflection) {
	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

// Cultivation totals seeds across all records. Averages divide by every
// record, including those without a cultivation log.
func Cultivation(reflections []models.StructuredReflection) CultivationStats {
	stats := CultivationStats{TotalDays: len(reflections)}
	for _, r := range reflections {
		if r.Cultivation == nil {
			continue
		}
		stats.WholesomeSeedsCount += len(r.Cultivation.Wholesome)
		stats.UnwholesomeSeedsCount += len(r.Cultivation.Unwholesome)
	}

	if total := stats.WholesomeSeedsCount + stats.UnwholesomeSeedsCount; total > 0 {
		stats.Ratio = float64(stats.WholesomeSeedsCount) / float64(total)
	}
	if stats.TotalDays > 0 {
		stats.AverageWholesomePerDay = float64(stats.WholesomeSeedsCount) / float64(stats.TotalDays)
		stats.AverageUnwholesomePerDay = float64(stats.UnwholesomeSeedsCount) / float64(stats.TotalDays)
	}
	return stats
}

// Patterns computes the share of all records flagging each self-deception
// pattern. Dominant is the pattern with the strictly highest count, checked
// in form, speech, mind order, or nil when nothing was flagged.
func Patterns(reflections []models.StructuredReflection) PatternStats {
	var stats PatternStats
	for _, r := range reflections {
		if r.Patterns == nil {
			continue
		}
		if r.Patterns.Form {
			stats.FormCount++
		}
		if r.Patterns.Speech {
			stats.SpeechCount++
		}
		if r.Patterns.Mind {
			stats.MindCount++
		}
	}

	n := len(reflections)
	stats.FormPercent = percent(stats.FormCount, n)
	stats.SpeechPercent = percent(stats.SpeechCount, n)
	stats.MindPercent = percent(stats.MindCount, n)

	ordered := []struct {
		pattern Pattern
		count   int
	}{
		{PatternForm, stats.FormCount},
		{PatternSpeech, stats.SpeechCount},
		{PatternMind, stats.MindCount},
	}
	max := 0
	for _, o := range ordered {
		if o.count > max {
			p := o.pattern
			stats.Dominant = &p
			max = o.count
		}
	}
	return stats
}

// SecondArrow computes how often self-inflicted distress was reported and
// whether that frequency is falling (improving) or rising (worsening).
// Fewer than MinSecondArrowRecords records is always stable.
func SecondArrow(sorted []models.StructuredReflection) SecondArrowStats {
	stats := SecondArrowStats{
		Occurrences: countSecondArrows(sorted),
		Trend:       TrendStable,
	}
	stats.FrequencyPercent = percent(stats.Occurrences, len(sorted))

	if len(sorted) < MinSecondArrowRecords {
		return stats
	}

	first, second := splitHalves(sorted)
	switch compareMeans(countSecondArrows(first), len(first), countSecondArrows(second), len(second), secondArrowThreshold) {
	case -1:
		stats.Trend = TrendImproving
	case 1:
		stats.Trend = TrendWorsening
	}
	return stats
}

func countSecondArrows(records []models.StructuredReflection) int {
	n := 0
	for _, r := range records {
		if r.SecondArrow != nil && r.SecondArrow.Occurred {
			n++
		}
	}
	return n
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
