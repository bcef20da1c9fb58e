package planner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrwolf/parami/internal/models"
	"github.com/mrwolf/parami/internal/rotation"
)

// Modes for choosing the theme of the day
const (
	ModeDaily = "daily"
	ModeQueue = "queue"
)

// ErrQueueDisabled is returned by Advance when the planner runs in daily mode
var ErrQueueDisabled = errors.New("rotation queue is disabled")

// Store is the persisted per-actor state the planner reads and writes
type Store interface {
	GetDayState(actor string) (*models.DayState, error)
	SetDayState(s models.DayState) error
	GetRotationState(actor string) (*models.RotationState, error)
	SaveRotationState(actor string, state models.RotationState) error
	ClearAllDismissed(actor string) error
}

// Day is the outcome of resolving an actor's theme for a date
type Day struct {
	Date    string
	ThemeID int
	Changed bool // the theme differs from the previously stored day
}

// Planner decides each actor's theme of the day. The first call on a new
// calendar day rolls the actor over: the queue (in queue mode) advances once
// and dismissed activity logs are reset if the theme changed. Rollovers are
// serialized so the scheduler and a request racing at midnight advance the
// queue only once.
type Planner struct {
	mu    sync.Mutex
	store Store
	queue *rotation.Queue
	mode  string
	loc   *time.Location
}

// New creates a planner. A nil loc means UTC.
func New(store Store, queue *rotation.Queue, mode string, loc *time.Location) (*Planner, error) {
	if mode != ModeDaily && mode != ModeQueue {
		return nil, fmt.Errorf("unknown rotation mode %q", mode)
	}
	if loc == nil {
		loc = time.UTC
	}
	if queue == nil {
		queue = rotation.NewQueue(rotation.ThemeCount)
	}
	return &Planner{store: store, queue: queue, mode: mode, loc: loc}, nil
}

func (p *Planner) Mode() string {
	return p.mode
}

// Location is the timezone calendar days are taken in
func (p *Planner) Location() *time.Location {
	return p.loc
}

// Date returns the calendar date of now in the planner's timezone
func (p *Planner) Date(now time.Time) string {
	return now.In(p.loc).Format(models.DateLayout)
}

// Today returns the actor's theme for the calendar day containing now,
// rolling the actor over if this is the first call of that day.
func (p *Planner) Today(actor string, now time.Time) (Day, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	date := p.Date(now)

	prev, err := p.store.GetDayState(actor)
	if err != nil {
		return Day{}, fmt.Errorf("loading day state: %w", err)
	}
	if prev != nil && prev.ForDate == date {
		return Day{Date: date, ThemeID: prev.ThemeID}, nil
	}

	themeID, err := p.nextTheme(actor, now)
	if err != nil {
		return Day{}, err
	}
	return p.commit(actor, prev, date, themeID)
}

// Advance moves the actor's rotation queue forward immediately and makes the
// new theme today's theme. It fails with ErrQueueDisabled in daily mode.
func (p *Planner) Advance(actor string, now time.Time) (Day, error) {
	if p.mode != ModeQueue {
		return Day{}, ErrQueueDisabled
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev, err := p.store.GetDayState(actor)
	if err != nil {
		return Day{}, fmt.Errorf("loading day state: %w", err)
	}

	themeID, err := p.advanceQueue(actor)
	if err != nil {
		return Day{}, err
	}
	return p.commit(actor, prev, p.Date(now), themeID)
}

func (p *Planner) nextTheme(actor string, now time.Time) (int, error) {
	if p.mode == ModeDaily {
		return rotation.SelectTheme(now.In(p.loc)), nil
	}
	return p.advanceQueue(actor)
}

// advanceQueue starts a fresh cycle for a new actor, otherwise steps the stored one
func (p *Planner) advanceQueue(actor string) (int, error) {
	state, err := p.store.GetRotationState(actor)
	if err != nil {
		return 0, fmt.Errorf("loading rotation state: %w", err)
	}

	var themeID int
	var next models.RotationState
	if state == nil {
		next = p.queue.Fresh()
		themeID = next.Order[0]
	} else {
		themeID, next = p.queue.Advance(*state)
	}

	if err := p.store.SaveRotationState(actor, next); err != nil {
		return 0, fmt.Errorf("saving rotation state: %w", err)
	}
	return themeID, nil
}

func (p *Planner) commit(actor string, prev *models.DayState, date string, themeID int) (Day, error) {
	changed := prev == nil || prev.ThemeID != themeID
	if changed {
		if err := p.store.ClearAllDismissed(actor); err != nil {
			return Day{}, fmt.Errorf("clearing dismissed activities: %w", err)
		}
	}

	if err := p.store.SetDayState(models.DayState{Actor: actor, ForDate: date, ThemeID: themeID}); err != nil {
		return Day{}, fmt.Errorf("saving day state: %w", err)
	}
	return Day{Date: date, ThemeID: themeID, Changed: changed}, nil
}
