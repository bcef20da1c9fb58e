package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mrwolf/parami/internal/analytics"
	"github.com/mrwolf/parami/internal/db"
	"github.com/mrwolf/parami/internal/planner"
	"github.com/mrwolf/parami/internal/vault"
)

// Job names, also used as scheduler_runs.job_type
const (
	JobDailyRollover = "daily-rollover"
	JobWeeklyDigest  = "weekly-digest"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	scheduler gocron.Scheduler
	db        *db.DB
	vault     *vault.Vault
	planner   *planner.Planner
	clock     clockwork.Clock
	timezone  *time.Location
	actors    []string
	log       *zap.Logger
}

// Config holds scheduler configuration
type Config struct {
	Actors []string
	Clock  clockwork.Clock // nil means the real clock
}

// New creates a new scheduler. A nil vault disables the weekly digest.
func New(database *db.DB, v *vault.Vault, p *planner.Planner, cfg Config, log *zap.Logger) (*Scheduler, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(p.Location()),
		gocron.WithClock(clock),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		db:        database,
		vault:     v,
		planner:   p,
		clock:     clock,
		timezone:  p.Location(),
		actors:    cfg.Actors,
		log:       log.Named("scheduler"),
	}, nil
}

// Start registers all jobs and starts the scheduler
func (s *Scheduler) Start() error {
	// Roll every actor over just after midnight
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 1, 0))),
		gocron.NewTask(s.rolloverAll),
		gocron.WithName(JobDailyRollover),
	)
	if err != nil {
		return err
	}

	if s.vault != nil {
		// Weekly digest on Sunday at 08:00
		_, err = s.scheduler.NewJob(
			gocron.WeeklyJob(1, gocron.NewWeekdays(time.Sunday), gocron.NewAtTimes(gocron.NewAtTime(8, 0, 0))),
			gocron.NewTask(s.digestAll),
			gocron.WithName(JobWeeklyDigest),
		)
		if err != nil {
			return err
		}
	}

	s.scheduler.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.scheduler.Jobs())), zap.String("timezone", s.timezone.String()))
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// JobNames lists the registered jobs
func (s *Scheduler) JobNames() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name()
	}
	return names
}

func (s *Scheduler) rolloverAll() {
	s.log.Debug("running daily rollover")
	for _, actor := range s.actors {
		if _, err := s.RolloverNow(actor); err != nil {
			s.log.Error("rollover failed", zap.String("actor", actor), zap.Error(err))
		}
	}
}

func (s *Scheduler) digestAll() {
	s.log.Debug("running weekly digest")
	for _, actor := range s.actors {
		if _, err := s.DigestNow(actor); err != nil {
			s.log.Error("digest failed", zap.String("actor", actor), zap.Error(err))
		}
	}
}

// RolloverNow resolves the actor's theme for the current day immediately
func (s *Scheduler) RolloverNow(actor string) (planner.Day, error) {
	var day planner.Day
	err := s.track(actor, JobDailyRollover, func() error {
		var err error
		day, err = s.planner.Today(actor, s.clock.Now())
		return err
	})
	if err != nil {
		return planner.Day{}, err
	}

	s.log.Info("rolled over",
		zap.String("actor", actor),
		zap.String("date", day.Date),
		zap.Int("theme_id", day.ThemeID),
		zap.Bool("changed", day.Changed),
	)
	return day, nil
}

// DigestNow writes the actor's weekly digest immediately and returns its vault path
func (s *Scheduler) DigestNow(actor string) (string, error) {
	if s.vault == nil {
		return "", fmt.Errorf("digest for %s: no vault configured", actor)
	}

	var path string
	err := s.track(actor, JobWeeklyDigest, func() error {
		reflections, err := s.db.ListReflections(actor)
		if err != nil {
			return fmt.Errorf("listing reflections: %w", err)
		}

		now := s.clock.Now().In(s.timezone)
		path, err = s.vault.WriteDigest(vault.Digest{
			Actor:       actor,
			Week:        vault.WeekLabel(now),
			GeneratedAt: now,
			Summary:     analytics.Aggregate(reflections),
		})
		return err
	})
	if err != nil {
		return "", err
	}

	s.log.Info("wrote weekly digest", zap.String("actor", actor), zap.String("path", path))
	return path, nil
}

// track records a job execution in scheduler_runs around fn
func (s *Scheduler) track(actor, jobType string, fn func() error) error {
	runID, err := s.db.StartSchedulerRun(actor, jobType)
	if err != nil {
		return fmt.Errorf("recording %s start: %w", jobType, err)
	}

	jobErr := fn()

	errMsg := ""
	if jobErr != nil {
		errMsg = jobErr.Error()
	}
	if err := s.db.CompleteSchedulerRun(runID, errMsg); err != nil {
		s.log.Warn("recording job completion failed", zap.String("job", jobType), zap.Int64("run_id", runID), zap.Error(err))
	}
	return jobErr
}
