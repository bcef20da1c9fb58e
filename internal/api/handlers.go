package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mrwolf/parami/internal/analytics"
	"github.com/mrwolf/parami/internal/config"
	"github.com/mrwolf/parami/internal/content"
	"github.com/mrwolf/parami/internal/db"
	"github.com/mrwolf/parami/internal/insights"
	"github.com/mrwolf/parami/internal/models"
	"github.com/mrwolf/parami/internal/planner"
	"github.com/mrwolf/parami/internal/practices"
	"github.com/mrwolf/parami/internal/rotation"
	"github.com/mrwolf/parami/internal/scoring"
	"github.com/mrwolf/parami/internal/vault"
)

// Version is reported by /health
const Version = "1.0.0"

// MaxHorizonDays bounds the recurrence scan
const MaxHorizonDays = 366

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// DigestTrigger writes a weekly digest on demand
type DigestTrigger interface {
	DigestNow(actor string) (string, error)
}

// QuizResultResponse pairs a stored quiz result with its composed insights
type QuizResultResponse struct {
	Result   models.QuizResult  `json:"result"`
	Insights *insights.Insights `json:"insights"`
}

// AnalyticsResponse wraps the summary; Summary is null for an empty history
type AnalyticsResponse struct {
	Summary *analytics.Summary `json:"summary"`
}

type Handlers struct {
	cfg      *config.Config
	db       *db.DB
	vault    *vault.Vault
	catalog  *content.Catalog
	tracker  *practices.Tracker
	composer *insights.Composer
	planner  *planner.Planner
	clock    clockwork.Clock
	log      *zap.Logger
	digests  DigestTrigger
}

func NewHandlers(deps Deps) *Handlers {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		cfg:      deps.Config,
		db:       deps.DB,
		vault:    deps.Vault,
		catalog:  deps.Catalog,
		tracker:  practices.NewTracker(deps.Catalog),
		composer: insights.NewComposer(deps.Catalog),
		planner:  deps.Planner,
		clock:    clock,
		log:      log.Named("api"),
	}
}

// SetDigestTrigger enables POST /digest
func (h *Handlers) SetDigestTrigger(d DigestTrigger) {
	h.digests = d
}

// internalError logs err and writes a 500 with the given code
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, message, code string, err error) {
	h.log.Error(message, zap.String("path", r.URL.Path), zap.String("actor", GetActor(r)), zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, code)
}

// domainError maps core sentinel errors to 400s and anything else to a 500
func (h *Handlers) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, content.ErrUnknownTheme):
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_THEME")
	case errors.Is(err, scoring.ErrRatingOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_RATING")
	default:
		h.internalError(w, r, "internal error", "INTERNAL", err)
	}
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := models.HealthResponse{
		Status:  "ok",
		DB:      h.checkDB(),
		Vault:   h.checkVault(),
		Version: Version,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) checkDB() string {
	if err := h.db.Ping(); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func (h *Handlers) checkVault() string {
	if h.vault == nil {
		return "not configured"
	}
	info, err := os.Stat(h.vault.BasePath())
	if err != nil {
		return "error: " + err.Error()
	}
	if !info.IsDir() {
		return "error: not a directory"
	}
	return "writable"
}

// ============== Themes ==============

// Today handles GET /today
func (h *Handlers) Today(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r)
	day, err := h.planner.Today(actor, h.clock.Now())
	if err != nil {
		h.internalError(w, r, "resolving today's theme", "DB_ERROR", err)
		return
	}
	h.writeToday(w, r, actor, day)
}

// AdvanceRotation handles POST /rotation/advance
func (h *Handlers) AdvanceRotation(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r)
	day, err := h.planner.Advance(actor, h.clock.Now())
	if errors.Is(err, planner.ErrQueueDisabled) {
		writeError(w, http.StatusConflict, err.Error(), "QUEUE_DISABLED")
		return
	}
	if err != nil {
		h.internalError(w, r, "advancing rotation", "DB_ERROR", err)
		return
	}
	h.writeToday(w, r, actor, day)
}

func (h *Handlers) writeToday(w http.ResponseWriter, r *http.Request, actor string, day planner.Day) {
	theme, err := h.catalog.Theme(day.ThemeID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	pool, err := h.pool(actor, day.ThemeID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	resp := models.TodayResponse{
		Date:  day.Date,
		Mode:  h.planner.Mode(),
		Theme: theme,
		Pool:  *pool,
	}
	if h.planner.Mode() == planner.ModeDaily {
		from, _ := time.Parse(models.DateLayout, day.Date)
		if days, ok := rotation.DaysUntilThemeRecurs(day.ThemeID, from, rotation.DefaultHorizonDays); ok {
			resp.RecursInDays = &days
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Themes handles GET /themes
func (h *Handlers) Themes(w http.ResponseWriter, r *http.Request) {
	themes := h.catalog.Themes()
	out := make([]models.ThemeSummary, len(themes))
	for i, t := range themes {
		out[i] = models.ThemeSummary{
			ID:               t.ID,
			Name:             t.Name,
			PaliName:         t.PaliName,
			ShortDescription: t.ShortDescription,
			ActivityCount:    len(t.Activities) + len(t.ExtendedActivities),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": out})
}

// Theme handles GET /themes/{id}
func (h *Handlers) Theme(w http.ResponseWriter, r *http.Request) {
	id, ok := h.themeParam(w, r)
	if !ok {
		return
	}
	theme, err := h.catalog.Theme(id)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}

// Recurrence handles GET /themes/{id}/recurrence?horizon=30&from=YYYY-MM-DD
func (h *Handlers) Recurrence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.themeParam(w, r)
	if !ok {
		return
	}
	if !h.catalog.ValidThemeID(id) {
		writeError(w, http.StatusBadRequest, "unknown theme", "UNKNOWN_THEME")
		return
	}

	horizon := rotation.DefaultHorizonDays
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHorizonDays {
			writeError(w, http.StatusBadRequest, "horizon must be between 1 and 366", "INVALID_HORIZON")
			return
		}
		horizon = n
	}

	fromStr := h.planner.Date(h.clock.Now())
	if raw := r.URL.Query().Get("from"); raw != "" {
		fromStr = raw
	}
	from, err := time.Parse(models.DateLayout, fromStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, use YYYY-MM-DD", "INVALID_DATE")
		return
	}

	resp := models.RecurrenceResponse{ThemeID: id, From: fromStr, Horizon: horizon}
	if days, ok := rotation.DaysUntilThemeRecurs(id, from, horizon); ok {
		resp.Days = &days
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) themeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "theme id must be an integer", "INVALID_THEME")
		return 0, false
	}
	return id, true
}

// ============== Activities ==============

func (h *Handlers) pool(actor string, themeID int) (*models.ActivityPool, error) {
	seen, err := h.db.ListDismissed(actor, themeID)
	if err != nil {
		return nil, err
	}
	available, err := h.tracker.Available(themeID, seen)
	if err != nil {
		return nil, err
	}
	total, err := h.tracker.TotalCount(themeID)
	if err != nil {
		return nil, err
	}

	pool := &models.ActivityPool{
		ThemeID:   themeID,
		Exhausted: len(available) == 0,
		Remaining: len(available),
		Total:     total,
	}
	if len(available) > 0 {
		next := available[0]
		pool.Activity = &next
	}
	return pool, nil
}

// Dismiss handles POST /activities/dismiss
func (h *Handlers) Dismiss(w http.ResponseWriter, r *http.Request) {
	var req models.DismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}
	if req.ActivityID == "" {
		writeError(w, http.StatusBadRequest, "activity_id is required", "MISSING_ACTIVITY")
		return
	}

	catalog, err := h.tracker.Catalog(req.ThemeID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	if !containsActivity(catalog, req.ActivityID) {
		writeError(w, http.StatusBadRequest, "activity does not belong to theme", "UNKNOWN_ACTIVITY")
		return
	}

	actor := GetActor(r)
	if err := h.db.AddDismissed(actor, req.ThemeID, req.ActivityID); err != nil {
		h.internalError(w, r, "recording dismissal", "DB_ERROR", err)
		return
	}

	pool, err := h.pool(actor, req.ThemeID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// Restart handles POST /activities/restart
func (h *Handlers) Restart(w http.ResponseWriter, r *http.Request) {
	var req models.RestartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}
	if !h.catalog.ValidThemeID(req.ThemeID) {
		writeError(w, http.StatusBadRequest, "unknown theme", "UNKNOWN_THEME")
		return
	}

	actor := GetActor(r)
	if err := h.db.ClearDismissed(actor, req.ThemeID); err != nil {
		h.internalError(w, r, "clearing dismissed activities", "DB_ERROR", err)
		return
	}

	pool, err := h.pool(actor, req.ThemeID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func containsActivity(activities []models.Activity, id string) bool {
	for _, a := range activities {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ============== Quiz ==============

// SubmitQuiz handles POST /quiz. Every theme must be rated exactly once.
func (h *Handlers) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	rated := make(map[int]bool, len(req.Responses))
	for _, resp := range req.Responses {
		if !h.catalog.ValidThemeID(resp.ThemeID) {
			writeError(w, http.StatusBadRequest, "unknown theme "+strconv.Itoa(resp.ThemeID), "UNKNOWN_THEME")
			return
		}
		if rated[resp.ThemeID] {
			writeError(w, http.StatusBadRequest, "theme "+strconv.Itoa(resp.ThemeID)+" rated twice", "DUPLICATE_THEME")
			return
		}
		rated[resp.ThemeID] = true
	}
	if len(rated) != h.catalog.Count() {
		writeError(w, http.StatusBadRequest, "every theme must be rated", "INCOMPLETE_QUIZ")
		return
	}

	scores, err := scoring.ScoreAll(req.Responses)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	result := models.QuizResult{
		ID:          uuid.NewString(),
		Actor:       GetActor(r),
		CompletedAt: h.clock.Now().UTC(),
		Scores:      scores,
	}
	composed, err := h.composer.Compose(scores)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	if err := h.db.SaveQuizResult(&result); err != nil {
		h.internalError(w, r, "saving quiz result", "DB_ERROR", err)
		return
	}

	writeJSON(w, http.StatusCreated, QuizResultResponse{Result: result, Insights: composed})
}

// QuizResults handles GET /quiz/results
func (h *Handlers) QuizResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.db.ListQuizResults(GetActor(r))
	if err != nil {
		h.internalError(w, r, "listing quiz results", "DB_ERROR", err)
		return
	}
	if results == nil {
		results = []models.QuizResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// QuizResult handles GET /quiz/results/{id}
func (h *Handlers) QuizResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.db.GetQuizResult(GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.internalError(w, r, "loading quiz result", "DB_ERROR", err)
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "quiz result not found", "NOT_FOUND")
		return
	}

	composed, err := h.composer.Compose(result.Scores)
	if err != nil {
		h.domainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuizResultResponse{Result: *result, Insights: composed})
}

// ============== Reflections ==============

// PutReflection handles PUT /reflections. Only today's reflection is writable.
func (h *Handlers) PutReflection(w http.ResponseWriter, r *http.Request) {
	var req models.ReflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	if !req.EmotionalState.Valid() {
		writeError(w, http.StatusBadRequest, "invalid emotional_state", "INVALID_EMOTION")
		return
	}
	if !req.ResilienceLevel.Valid() {
		writeError(w, http.StatusBadRequest, "invalid resilience_level", "INVALID_RESILIENCE")
		return
	}

	actor := GetActor(r)
	now := h.clock.Now()
	today := h.planner.Date(now)

	if req.Date == "" {
		req.Date = today
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, use YYYY-MM-DD", "INVALID_DATE")
		return
	}
	if req.Date != today {
		writeError(w, http.StatusConflict, "only today's reflection can be edited", "DAY_CLOSED")
		return
	}

	if req.ThemeID == 0 {
		day, err := h.planner.Today(actor, now)
		if err != nil {
			h.internalError(w, r, "resolving today's theme", "DB_ERROR", err)
			return
		}
		req.ThemeID = day.ThemeID
	}
	if !h.catalog.ValidThemeID(req.ThemeID) {
		writeError(w, http.StatusBadRequest, "unknown theme", "UNKNOWN_THEME")
		return
	}

	reflection := models.StructuredReflection{
		Actor:           actor,
		Date:            date,
		ThemeID:         req.ThemeID,
		EmotionalState:  req.EmotionalState,
		ResilienceLevel: req.ResilienceLevel,
		Overall:         req.Overall,
		Patterns:        req.Patterns,
		Cultivation:     req.Cultivation,
		SecondArrow:     req.SecondArrow,
		UpdatedAt:       now.UTC(),
	}
	if err := h.db.UpsertReflection(&reflection); err != nil {
		h.internalError(w, r, "saving reflection", "DB_ERROR", err)
		return
	}

	writeJSON(w, http.StatusOK, reflection)
}

// Reflections handles GET /reflections
func (h *Handlers) Reflections(w http.ResponseWriter, r *http.Request) {
	reflections, err := h.db.ListReflections(GetActor(r))
	if err != nil {
		h.internalError(w, r, "listing reflections", "DB_ERROR", err)
		return
	}
	if reflections == nil {
		reflections = []models.StructuredReflection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reflections": reflections})
}

// Analytics handles GET /analytics
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	reflections, err := h.db.ListReflections(GetActor(r))
	if err != nil {
		h.internalError(w, r, "listing reflections", "DB_ERROR", err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyticsResponse{Summary: analytics.Aggregate(reflections)})
}

// Digest handles POST /digest - writes this week's digest now
func (h *Handlers) Digest(w http.ResponseWriter, r *http.Request) {
	if h.digests == nil {
		writeError(w, http.StatusServiceUnavailable, "digests not configured", "NOT_CONFIGURED")
		return
	}

	path, err := h.digests.DigestNow(GetActor(r))
	if err != nil {
		h.internalError(w, r, "writing digest", "DIGEST_FAILED", err)
		return
	}
	writeJSON(w, http.StatusOK, models.DigestResponse{Path: path})
}
