package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mrwolf/parami/internal/models"
)

const schema = `
-- Activities the actor has shuffled away, per theme
CREATE TABLE IF NOT EXISTS dismissed_activities (
    actor TEXT NOT NULL,
    theme_id INTEGER NOT NULL,
    activity_id TEXT NOT NULL,
    dismissed_at TEXT NOT NULL,
    PRIMARY KEY (actor, theme_id, activity_id)
);

-- Last theme of the day shown to each actor
CREATE TABLE IF NOT EXISTS daily_state (
    actor TEXT PRIMARY KEY,
    for_date TEXT NOT NULL,
    theme_id INTEGER NOT NULL
);

-- Theme rotation queue snapshot
CREATE TABLE IF NOT EXISTS rotation_state (
    actor TEXT PRIMARY KEY,
    theme_order TEXT NOT NULL,      -- JSON array of theme ids
    cursor INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);

-- Completed quizzes, append-only
CREATE TABLE IF NOT EXISTS quiz_results (
    result_id TEXT PRIMARY KEY,
    actor TEXT NOT NULL,
    completed_at TEXT NOT NULL,
    scores TEXT NOT NULL            -- JSON array of theme scores
);

-- One reflection per actor per day; theme_id is the theme it was written for
CREATE TABLE IF NOT EXISTS reflections (
    actor TEXT NOT NULL,
    for_date TEXT NOT NULL,
    theme_id INTEGER NOT NULL,
    emotional_state TEXT NOT NULL,
    resilience_level TEXT NOT NULL,
    overall TEXT,
    patterns TEXT,                  -- JSON, nullable
    cultivation TEXT,               -- JSON, nullable
    second_arrow TEXT,              -- JSON, nullable
    updated_at TEXT NOT NULL,
    PRIMARY KEY (actor, for_date)
);

-- Scheduler job tracking per actor
CREATE TABLE IF NOT EXISTS scheduler_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    actor TEXT NOT NULL,
    job_type TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TEXT NOT NULL,
    completed_at TEXT,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_quiz_actor ON quiz_results(actor, completed_at);
CREATE INDEX IF NOT EXISTS idx_scheduler_actor ON scheduler_runs(actor, job_type);
`

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping() error {
	return db.conn.Ping()
}

// storedTimeLayout keeps fixed-width fractions so stored timestamps sort as text
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ============== Dismissed activities ==============

// ListDismissed returns the activity ids dismissed for a theme, oldest first
func (db *DB) ListDismissed(actor string, themeID int) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT activity_id FROM dismissed_activities
		WHERE actor = ? AND theme_id = ?
		ORDER BY dismissed_at ASC, rowid ASC
	`, actor, themeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddDismissed records a dismissal. Dismissing the same activity twice is a no-op.
func (db *DB) AddDismissed(actor string, themeID int, activityID string) error {
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO dismissed_activities (actor, theme_id, activity_id, dismissed_at)
		VALUES (?, ?, ?, ?)
	`, actor, themeID, activityID, now())
	return err
}

// ClearDismissed resets the dismissed log of one theme
func (db *DB) ClearDismissed(actor string, themeID int) error {
	_, err := db.conn.Exec(`DELETE FROM dismissed_activities WHERE actor = ? AND theme_id = ?`, actor, themeID)
	return err
}

// ClearAllDismissed resets every dismissed log of an actor
func (db *DB) ClearAllDismissed(actor string) error {
	_, err := db.conn.Exec(`DELETE FROM dismissed_activities WHERE actor = ?`, actor)
	return err
}

// ============== Day state ==============

// GetDayState returns the last theme-of-the-day record, or nil if none exists
func (db *DB) GetDayState(actor string) (*models.DayState, error) {
	s := models.DayState{Actor: actor}
	err := db.conn.QueryRow(`
		SELECT for_date, theme_id FROM daily_state WHERE actor = ?
	`, actor).Scan(&s.ForDate, &s.ThemeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) SetDayState(s models.DayState) error {
	_, err := db.conn.Exec(`
		INSERT INTO daily_state (actor, for_date, theme_id) VALUES (?, ?, ?)
		ON CONFLICT(actor) DO UPDATE SET for_date = excluded.for_date, theme_id = excluded.theme_id
	`, s.Actor, s.ForDate, s.ThemeID)
	return err
}

// ============== Rotation state ==============

// GetRotationState returns the stored queue snapshot, or nil if none exists
func (db *DB) GetRotationState(actor string) (*models.RotationState, error) {
	var orderJSON string
	var state models.RotationState
	err := db.conn.QueryRow(`
		SELECT theme_order, cursor FROM rotation_state WHERE actor = ?
	`, actor).Scan(&orderJSON, &state.Cursor)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(orderJSON), &state.Order); err != nil {
		return nil, fmt.Errorf("decoding theme order: %w", err)
	}
	return &state, nil
}

func (db *DB) SaveRotationState(actor string, state models.RotationState) error {
	order, err := json.Marshal(state.Order)
	if err != nil {
		return fmt.Errorf("encoding theme order: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO rotation_state (actor, theme_order, cursor, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(actor) DO UPDATE SET
			theme_order = excluded.theme_order,
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
	`, actor, string(order), state.Cursor, now())
	return err
}

// ============== Quiz results ==============

// SaveQuizResult appends a completed quiz. Results are never updated.
func (db *DB) SaveQuizResult(r *models.QuizResult) error {
	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return fmt.Errorf("encoding scores: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO quiz_results (result_id, actor, completed_at, scores) VALUES (?, ?, ?, ?)
	`, r.ID, r.Actor, r.CompletedAt.UTC().Format(storedTimeLayout), string(scores))
	return err
}

// GetQuizResult returns one of the actor's results, or nil if not found
func (db *DB) GetQuizResult(actor, resultID string) (*models.QuizResult, error) {
	row := db.conn.QueryRow(`
		SELECT result_id, actor, completed_at, scores FROM quiz_results
		WHERE result_id = ? AND actor = ?
	`, resultID, actor)

	r, err := scanQuizResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListQuizResults returns the actor's results, oldest first
func (db *DB) ListQuizResults(actor string) ([]models.QuizResult, error) {
	rows, err := db.conn.Query(`
		SELECT result_id, actor, completed_at, scores FROM quiz_results
		WHERE actor = ?
		ORDER BY completed_at ASC, rowid ASC
	`, actor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.QuizResult
	for rows.Next() {
		r, err := scanQuizResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuizResult(s scanner) (*models.QuizResult, error) {
	var r models.QuizResult
	var completedStr, scoresJSON string
	if err := s.Scan(&r.ID, &r.Actor, &completedStr, &scoresJSON); err != nil {
		return nil, err
	}
	r.CompletedAt, _ = time.Parse(storedTimeLayout, completedStr)
	if err := json.Unmarshal([]byte(scoresJSON), &r.Scores); err != nil {
		return nil, fmt.Errorf("decoding scores of %s: %w", r.ID, err)
	}
	return &r, nil
}

// ============== Reflections ==============

// UpsertReflection writes the whole record for (actor, date), replacing any
// earlier reflection of that day including its theme
func (db *DB) UpsertReflection(r *models.StructuredReflection) error {
	patterns, err := encodeOptional(r.Patterns)
	if err != nil {
		return fmt.Errorf("encoding patterns: %w", err)
	}
	cultivation, err := encodeOptional(r.Cultivation)
	if err != nil {
		return fmt.Errorf("encoding cultivation: %w", err)
	}
	secondArrow, err := encodeOptional(r.SecondArrow)
	if err != nil {
		return fmt.Errorf("encoding second arrow: %w", err)
	}

	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = db.conn.Exec(`
		INSERT INTO reflections (actor, for_date, theme_id, emotional_state, resilience_level,
			overall, patterns, cultivation, second_arrow, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(actor, for_date) DO UPDATE SET
			theme_id = excluded.theme_id,
			emotional_state = excluded.emotional_state,
			resilience_level = excluded.resilience_level,
			overall = excluded.overall,
			patterns = excluded.patterns,
			cultivation = excluded.cultivation,
			second_arrow = excluded.second_arrow,
			updated_at = excluded.updated_at
	`, r.Actor, r.Date.Format(models.DateLayout), r.ThemeID, string(r.EmotionalState), string(r.ResilienceLevel),
		r.Overall, patterns, cultivation, secondArrow, updated.UTC().Format(time.RFC3339))
	return err
}

// GetReflection returns the reflection for a day, or nil if none exists
func (db *DB) GetReflection(actor, forDate string) (*models.StructuredReflection, error) {
	row := db.conn.QueryRow(`
		SELECT actor, for_date, theme_id, emotional_state, resilience_level,
			overall, patterns, cultivation, second_arrow, updated_at
		FROM reflections
		WHERE actor = ? AND for_date = ?
	`, actor, forDate)

	r, err := scanReflection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListReflections returns the actor's full history, oldest day first
func (db *DB) ListReflections(actor string) ([]models.StructuredReflection, error) {
	rows, err := db.conn.Query(`
		SELECT actor, for_date, theme_id, emotional_state, resilience_level,
			overall, patterns, cultivation, second_arrow, updated_at
		FROM reflections
		WHERE actor = ?
		ORDER BY for_date ASC
	`, actor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StructuredReflection
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReflection(s scanner) (*models.StructuredReflection, error) {
	var r models.StructuredReflection
	var dateStr, emotion, resilience, updatedStr string
	var overall, patterns, cultivation, secondArrow sql.NullString
	if err := s.Scan(&r.Actor, &dateStr, &r.ThemeID, &emotion, &resilience,
		&overall, &patterns, &cultivation, &secondArrow, &updatedStr); err != nil {
		return nil, err
	}

	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parsing reflection date %q: %w", dateStr, err)
	}
	r.Date = date
	r.EmotionalState = models.EmotionalState(emotion)
	r.ResilienceLevel = models.ResilienceLevel(resilience)
	r.Overall = overall.String
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)

	if err := decodeOptional(patterns, &r.Patterns); err != nil {
		return nil, fmt.Errorf("decoding patterns: %w", err)
	}
	if err := decodeOptional(cultivation, &r.Cultivation); err != nil {
		return nil, fmt.Errorf("decoding cultivation: %w", err)
	}
	if err := decodeOptional(secondArrow, &r.SecondArrow); err != nil {
		return nil, fmt.Errorf("decoding second arrow: %w", err)
	}
	return &r, nil
}

// encodeOptional stores a nil sub-record as SQL NULL
func encodeOptional[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeOptional[T any](s sql.NullString, dst **T) error {
	if !s.Valid {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

// ============== Scheduler runs ==============

// SchedulerRun tracks a scheduler job execution
type SchedulerRun struct {
	ID           int64
	Actor        string
	JobType      string
	Status       string
	StartedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// StartSchedulerRun records the start of a scheduler job
func (db *DB) StartSchedulerRun(actor, jobType string) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO scheduler_runs (actor, job_type, status, started_at)
		VALUES (?, ?, 'running', ?)
	`, actor, jobType, now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteSchedulerRun marks a scheduler job as completed
func (db *DB) CompleteSchedulerRun(runID int64, errMsg string) error {
	status := "completed"
	if errMsg != "" {
		status = "failed"
	}
	_, err := db.conn.Exec(`
		UPDATE scheduler_runs
		SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`, status, now(), errMsg, runID)
	return err
}

// GetLastSchedulerRun returns the last run for an actor and job type
func (db *DB) GetLastSchedulerRun(actor, jobType string) (*SchedulerRun, error) {
	var run SchedulerRun
	var startedStr string
	var completedStr, errMsg sql.NullString
	err := db.conn.QueryRow(`
		SELECT id, actor, job_type, status, started_at, completed_at, error_message
		FROM scheduler_runs
		WHERE actor = ? AND job_type = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, actor, jobType).Scan(&run.ID, &run.Actor, &run.JobType, &run.Status, &startedStr, &completedStr, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, startedStr)
	if completedStr.Valid {
		t, _ := time.Parse(time.RFC3339, completedStr.String)
		run.CompletedAt = &t
	}
	if errMsg.Valid {
		run.ErrorMessage = errMsg.String
	}
	return &run, nil
}
