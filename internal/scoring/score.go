package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mrwolf/parami/internal/models"
)

// Rating bounds for both halves of a quiz response
const (
	MinRating = 1
	MaxRating = 5
)

// Band thresholds, inclusive on the lower edge
const (
	StrongThreshold   = 70
	ModerateThreshold = 50
)

// Category is the band a 0-100 score falls into
type Category string

const (
	CategoryStrong     Category = "strong"
	CategoryModerate   Category = "moderate"
	CategoryDeveloping Category = "developing"
)

// Direction selects which end of the ranking TopN takes
type Direction string

const (
	Highest Direction = "highest"
	Lowest  Direction = "lowest"
)

// DefaultTopN is how many themes the results view highlights
const DefaultTopN = 3

// ErrRatingOutOfRange is returned for ratings outside [MinRating, MaxRating]
var ErrRatingOutOfRange = errors.New("rating out of range")

// Normalize maps a strength/weakness pair to 0-100.
// Weakness is inverted (6-w), the sum is shifted to 0..8 and scaled:
// (1,5) -> 0, (3,3) -> 50, (5,1) -> 100.
func Normalize(strength, weakness int) (int, error) {
	if strength < MinRating || strength > MaxRating {
		return 0, fmt.Errorf("%w: strength %d", ErrRatingOutOfRange, strength)
	}
	if weakness < MinRating || weakness > MaxRating {
		return 0, fmt.Errorf("%w: weakness %d", ErrRatingOutOfRange, weakness)
	}
	invertedWeakness := (MaxRating + 1) - weakness
	raw := strength + invertedWeakness - 2
	return int(math.Round(float64(raw) / 8 * 100)), nil
}

// ScoreOne scores a single response
func ScoreOne(r models.QuizResponse) (models.ThemeScore, error) {
	score, err := Normalize(r.Strength, r.Weakness)
	if err != nil {
		return models.ThemeScore{}, fmt.Errorf("theme %d: %w", r.ThemeID, err)
	}
	return models.ThemeScore{
		ThemeID:  r.ThemeID,
		Strength: r.Strength,
		Weakness: r.Weakness,
		Score:    score,
	}, nil
}

// ScoreAll scores every response in order, stopping at the first invalid one
func ScoreAll(responses []models.QuizResponse) ([]models.ThemeScore, error) {
	out := make([]models.ThemeScore, 0, len(responses))
	for _, r := range responses {
		s, err := ScoreOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CategoryOf buckets a score: >=70 strong, >=50 moderate, else developing
func CategoryOf(score int) Category {
	switch {
	case score >= StrongThreshold:
		return CategoryStrong
	case score >= ModerateThreshold:
		return CategoryModerate
	default:
		return CategoryDeveloping
	}
}

// TopN returns up to n scores from the requested end of the ranking.
// Equal scores keep their input order. The input is not modified.
func TopN(scores []models.ThemeScore, n int, dir Direction) []models.ThemeScore {
	sorted := make([]models.ThemeScore, len(scores))
	copy(sorted, scores)

	if dir == Lowest {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
	} else {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	}

	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Overall is the rounded mean of all scores, 0 when there are none
func Overall(scores []models.ThemeScore) int {
	if len(scores) == 0 {
		return 0
	}
	total := 0
	for _, s := range scores {
		total += s.Score
	}
	return int(math.Round(float64(total) / float64(len(scores))))
}
