package models

import "time"

// Difficulty is the ordered effort tier of an activity
type Difficulty string

const (
	DifficultyEasy        Difficulty = "easy"
	DifficultyMedium      Difficulty = "medium"
	DifficultyChallenging Difficulty = "challenging"
)

// Rank orders difficulties easy < medium < challenging. Unknown values rank 0.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyChallenging:
		return 3
	}
	return 0
}

// Activity is a single suggested practice belonging to one theme
type Activity struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	Context     string     `json:"context" yaml:"context"`
}

// Quote is the featured quotation of a theme
type Quote struct {
	Text   string `json:"text" yaml:"text"`
	Source string `json:"source" yaml:"source"`
}

// Theme is one of the fixed practice topics. Reference content, never mutated.
type Theme struct {
	ID                 int        `json:"id" yaml:"id"`
	Name               string     `json:"name" yaml:"name"`
	PaliName           string     `json:"pali_name" yaml:"pali_name"`
	ShortDescription   string     `json:"short_description" yaml:"short_description"`
	LongDescription    string     `json:"long_description" yaml:"long_description"`
	Story              string     `json:"story" yaml:"story"`
	Quote              Quote      `json:"quote" yaml:"quote"`
	Activities         []Activity `json:"activities" yaml:"activities"`
	ExtendedActivities []Activity `json:"extended_activities" yaml:"extended_activities"`
}

// QuizResponse is one paired self-rating for a theme, both ratings in [1,5]
type QuizResponse struct {
	ThemeID  int `json:"theme_id"`
	Strength int `json:"strength"`
	Weakness int `json:"weakness"`
}

// ThemeScore is the normalized 0-100 score derived from a QuizResponse
type ThemeScore struct {
	ThemeID  int `json:"theme_id"`
	Strength int `json:"strength"`
	Weakness int `json:"weakness"`
	Score    int `json:"score"`
}

// QuizResult is an append-only record of one completed quiz
type QuizResult struct {
	ID          string       `json:"id"`
	Actor       string       `json:"-"`
	CompletedAt time.Time    `json:"completed_at"`
	Scores      []ThemeScore `json:"scores"`
}

// EmotionalState is the self-reported emotional state of a reflection day.
// Declaration order is significant: it breaks ties in dominant-state detection.
type EmotionalState string

const (
	EmotionPeaceful   EmotionalState = "peaceful"
	EmotionJoyful     EmotionalState = "joyful"
	EmotionNeutral    EmotionalState = "neutral"
	EmotionAgitated   EmotionalState = "agitated"
	EmotionDistressed EmotionalState = "distressed"
)

// EmotionalStates lists every state in declaration order
var EmotionalStates = []EmotionalState{
	EmotionPeaceful,
	EmotionJoyful,
	EmotionNeutral,
	EmotionAgitated,
	EmotionDistressed,
}

// Valid reports whether e is one of the declared states
func (e EmotionalState) Valid() bool {
	for _, s := range EmotionalStates {
		if s == e {
			return true
		}
	}
	return false
}

// ResilienceLevel is how steady the user felt through the day
type ResilienceLevel string

const (
	ResilienceStable     ResilienceLevel = "stable"
	ResilienceWavering   ResilienceLevel = "wavering"
	ResilienceStruggling ResilienceLevel = "struggling"
)

// Valid reports whether r is one of the declared levels
func (r ResilienceLevel) Valid() bool {
	switch r {
	case ResilienceStable, ResilienceWavering, ResilienceStruggling:
		return true
	}
	return false
}

// PatternAudit records which self-deception patterns showed up that day
type PatternAudit struct {
	Form   bool   `json:"form"`
	Speech bool   `json:"speech"`
	Mind   bool   `json:"mind"`
	Notes  string `json:"notes,omitempty"`
}

// CultivationLog holds the mental seeds watered that day. Values come from
// WholesomeSeeds / UnwholesomeSeeds but are stored as free strings.
type CultivationLog struct {
	Wholesome   []string `json:"wholesome"`
	Unwholesome []string `json:"unwholesome"`
}

// Seed vocabularies offered to the user
var (
	WholesomeSeeds   = []string{"joy", "gratitude", "compassion", "patience", "generosity", "mindfulness", "equanimity"}
	UnwholesomeSeeds = []string{"anger", "craving", "envy", "pride", "fear", "restlessness", "doubt"}
)

// SecondArrow records whether avoidable suffering was added on top of a difficulty
type SecondArrow struct {
	Occurred    bool   `json:"occurred"`
	Description string `json:"description,omitempty"`
}

// StructuredReflection is one day's journal record for one theme
type StructuredReflection struct {
	Actor           string          `json:"-"`
	Date            time.Time       `json:"date"`
	ThemeID         int             `json:"theme_id"`
	EmotionalState  EmotionalState  `json:"emotional_state"`
	ResilienceLevel ResilienceLevel `json:"resilience_level"`
	Overall         string          `json:"overall_reflection,omitempty"`
	Patterns        *PatternAudit   `json:"patterns,omitempty"`
	Cultivation     *CultivationLog `json:"cultivation,omitempty"`
	SecondArrow     *SecondArrow    `json:"second_arrow,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DateLayout is the calendar-day format used on the wire and in storage
const DateLayout = "2006-01-02"

// RotationState is the persisted ThemeRotationQueue snapshot
type RotationState struct {
	Order  []int `json:"order"`
	Cursor int   `json:"cursor"`
}

// DayState remembers which theme an actor was shown on a given day
type DayState struct {
	Actor   string
	ForDate string
	ThemeID int
}
