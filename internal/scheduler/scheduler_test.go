package scheduler

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mrwolf/parami/internal/db"
	"github.com/mrwolf/parami/internal/models"
	"github.com/mrwolf/parami/internal/planner"
	"github.com/mrwolf/parami/internal/vault"
)

func setupTestScheduler(t *testing.T, withVault bool) (*Scheduler, *db.DB, string, *clockwork.FakeClock) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "scheduler.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	var v *vault.Vault
	vaultDir := ""
	if withVault {
		vaultDir = t.TempDir()
		v = vault.NewVault(vaultDir)
	}

	p, err := planner.New(database, nil, planner.ModeDaily, time.UTC)
	if err != nil {
		t.Fatalf("creating planner: %v", err)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	s, err := New(database, v, p, Config{Actors: []string{"wolf"}, Clock: clock}, zap.NewNop())
	if err != nil {
		t.Fatalf("creating scheduler: %v", err)
	}
	return s, database, vaultDir, clock
}

func TestRolloverNow(t *testing.T) {
	s, database, _, clock := setupTestScheduler(t, false)

	if err := database.AddDismissed("wolf", 6, "pat-01"); err != nil {
		t.Fatal(err)
	}

	day, err := s.RolloverNow("wolf")
	if err != nil {
		t.Fatalf("RolloverNow: %v", err)
	}
	if day.ThemeID != 6 || day.Date != "2024-01-15" || !day.Changed {
		t.Errorf("unexpected day %+v", day)
	}

	ids, _ := database.ListDismissed("wolf", 6)
	if len(ids) != 0 {
		t.Errorf("first rollover should reset dismissed logs, got %v", ids)
	}

	run, err := database.GetLastSchedulerRun("wolf", JobDailyRollover)
	if err != nil || run == nil {
		t.Fatalf("expected a recorded run, got (%v, %v)", run, err)
	}
	if run.Status != "completed" {
		t.Errorf("expected completed run, got %s", run.Status)
	}

	// Next day has the same theme (7 on both the 16th and 17th)
	clock.Advance(24 * time.Hour)
	if day, _ = s.RolloverNow("wolf"); day.ThemeID != 7 || !day.Changed {
		t.Errorf("unexpected day %+v", day)
	}
	if err := database.AddDismissed("wolf", 7, "tru-01"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(24 * time.Hour)
	if day, _ = s.RolloverNow("wolf"); day.ThemeID != 7 || day.Changed {
		t.Errorf("unexpected day %+v", day)
	}
	if ids, _ := database.ListDismissed("wolf", 7); len(ids) != 1 {
		t.Errorf("unchanged theme should keep its log, got %v", ids)
	}
}

func TestDigestNow(t *testing.T) {
	s, database, vaultDir, _ := setupTestScheduler(t, true)

	for i, state := range []models.EmotionalState{models.EmotionJoyful, models.EmotionJoyful, models.EmotionAgitated} {
		err := database.UpsertReflection(&models.StructuredReflection{
			Actor:           "wolf",
			Date:            time.Date(2024, 1, 12+i, 0, 0, 0, 0, time.UTC),
			ThemeID:         i + 1,
			EmotionalState:  state,
			ResilienceLevel: models.ResilienceStable,
		})
		if err != nil {
			t.Fatalf("upserting reflection: %v", err)
		}
	}

	path, err := s.DigestNow("wolf")
	if err != nil {
		t.Fatalf("DigestNow: %v", err)
	}
	if path != filepath.Join("Digests", "Weekly", "2024-W03-wolf.md") {
		t.Errorf("unexpected path %s", path)
	}

	content, err := os.ReadFile(filepath.Join(vaultDir, path))
	if err != nil {
		t.Fatalf("reading digest: %v", err)
	}
	if !strings.Contains(string(content), "dominant_emotion: joyful") {
		t.Errorf("digest missing dominant emotion:\n%s", content)
	}

	run, _ := database.GetLastSchedulerRun("wolf", JobWeeklyDigest)
	if run == nil || run.Status != "completed" {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestDigestNowWithoutVault(t *testing.T) {
	s, _, _, _ := setupTestScheduler(t, false)
	if _, err := s.DigestNow("wolf"); err == nil {
		t.Error("expected error without a vault")
	}
}

func TestStartRegistersJobs(t *testing.T) {
	tests := []struct {
		name      string
		withVault bool
		want      []string
	}{
		{"without vault", false, []string{JobDailyRollover}},
		{"with vault", true, []string{JobDailyRollover, JobWeeklyDigest}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _ := setupTestScheduler(t, tt.withVault)
			if err := s.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer s.Stop()

			names := s.JobNames()
			sort.Strings(names)
			if len(names) != len(tt.want) {
				t.Fatalf("JobNames = %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("JobNames = %v, want %v", names, tt.want)
				}
			}
		})
	}
}
