package models

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	DB      string `json:"db"`
	Vault   string `json:"vault"`
	Version string `json:"version"`
}

// ThemeSummary is the list view of a theme
type ThemeSummary struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	PaliName         string `json:"pali_name"`
	ShortDescription string `json:"short_description"`
	ActivityCount    int    `json:"activity_count"`
}

// DismissRequest is the body of POST /activities/dismiss
type DismissRequest struct {
	ThemeID    int    `json:"theme_id"`
	ActivityID string `json:"activity_id"`
}

// RestartRequest is the body of POST /activities/restart
type RestartRequest struct {
	ThemeID int `json:"theme_id"`
}

// ActivityPool is the actor's position in a theme's activity catalog.
// Activity is nil once every activity has been dismissed.
type ActivityPool struct {
	ThemeID   int       `json:"theme_id"`
	Activity  *Activity `json:"activity"`
	Exhausted bool      `json:"exhausted"`
	Remaining int       `json:"remaining"`
	Total     int       `json:"total"`
}

// TodayResponse is the body of GET /today
type TodayResponse struct {
	Date         string       `json:"date"`
	Mode         string       `json:"mode"`
	Theme        *Theme       `json:"theme"`
	Pool         ActivityPool `json:"pool"`
	RecursInDays *int         `json:"recurs_in_days,omitempty"`
}

// RecurrenceResponse is the body of GET /themes/{id}/recurrence. Days is
// null when the theme does not come up within the horizon.
type RecurrenceResponse struct {
	ThemeID int    `json:"theme_id"`
	From    string `json:"from"`
	Horizon int    `json:"horizon"`
	Days    *int   `json:"days"`
}

// QuizRequest is the body of POST /quiz
type QuizRequest struct {
	Responses []QuizResponse `json:"responses"`
}

// ReflectionRequest is the body of PUT /reflections. Date defaults to today
// and ThemeID to today's theme.
type ReflectionRequest struct {
	Date            string          `json:"date,omitempty"`
	ThemeID         int             `json:"theme_id,omitempty"`
	EmotionalState  EmotionalState  `json:"emotional_state"`
	ResilienceLevel ResilienceLevel `json:"resilience_level"`
	Overall         string          `json:"overall_reflection,omitempty"`
	Patterns        *PatternAudit   `json:"patterns,omitempty"`
	Cultivation     *CultivationLog `json:"cultivation,omitempty"`
	SecondArrow     *SecondArrow    `json:"second_arrow,omitempty"`
}

// DigestResponse is the body of POST /digest
type DigestResponse struct {
	Path string `json:"path"`
}
