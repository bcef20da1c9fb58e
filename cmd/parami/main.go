package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrwolf/parami/internal/api"
	"github.com/mrwolf/parami/internal/config"
	"github.com/mrwolf/parami/internal/content"
	"github.com/mrwolf/parami/internal/db"
	"github.com/mrwolf/parami/internal/logging"
	"github.com/mrwolf/parami/internal/models"
	"github.com/mrwolf/parami/internal/planner"
	"github.com/mrwolf/parami/internal/rotation"
	"github.com/mrwolf/parami/internal/scheduler"
	"github.com/mrwolf/parami/internal/vault"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parami",
		Short:         "Daily practice theme rotation and reflection analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newThemeCmd())
	root.AddCommand(newRecurCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduled jobs",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVar(&configDir, "config", ".", "directory containing config.yaml")
	return cmd
}

func serve(cfg *config.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting parami", zap.String("version", api.Version), zap.String("rotation_mode", cfg.RotationMode))

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	var v *vault.Vault
	if cfg.VaultPath != "" {
		v = vault.NewVault(cfg.VaultPath)
	} else {
		log.Warn("no vault configured, weekly digests disabled")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warn("unknown timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}

	p, err := planner.New(database, nil, cfg.RotationMode, loc)
	if err != nil {
		database.Close()
		return err
	}

	clock := clockwork.NewRealClock()
	router, handlers := api.NewRouter(api.Deps{
		Config:  cfg,
		DB:      database,
		Vault:   v,
		Catalog: content.MustDefault(),
		Planner: p,
		Clock:   clock,
		Log:     log,
	})

	sched, err := scheduler.New(database, v, p, scheduler.Config{
		Actors: cfg.Actors(),
		Clock:  clock,
	}, log)
	if err != nil {
		database.Close()
		return fmt.Errorf("creating scheduler: %w", err)
	}
	if err := sched.Start(); err != nil {
		database.Close()
		return fmt.Errorf("starting scheduler: %w", err)
	}
	if v != nil {
		handlers.SetDigestTrigger(sched)
	}

	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-done:
		log.Info("shutting down gracefully")
	case runErr = <-serveErr:
		log.Error("server error", zap.Error(runErr))
	}

	// Give ongoing requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}
	if err := sched.Stop(); err != nil {
		log.Error("scheduler shutdown", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		log.Error("database close", zap.Error(err))
	}

	if runErr != nil {
		return fmt.Errorf("serving on %s: %w", addr, runErr)
	}
	log.Info("shutdown complete")
	return nil
}

func newThemeCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Print the theme selected for a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDate(date)
			if err != nil {
				return err
			}
			theme, err := content.MustDefault().Theme(rotation.SelectTheme(day))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %d %s (%s)\n", day.Format(models.DateLayout), theme.ID, theme.Name, theme.PaliName)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	return cmd
}

func newRecurCmd() *cobra.Command {
	var from string
	var horizon int

	cmd := &cobra.Command{
		Use:   "recur <theme-id>",
		Short: "Print how many days until a theme comes up again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 || id > rotation.ThemeCount {
				return fmt.Errorf("theme id must be 1-%d, got %q", rotation.ThemeCount, args[0])
			}
			if horizon < 1 || horizon > api.MaxHorizonDays {
				return fmt.Errorf("horizon must be 1-%d", api.MaxHorizonDays)
			}
			start, err := parseDate(from)
			if err != nil {
				return err
			}

			days, ok := rotation.DaysUntilThemeRecurs(id, start, horizon)
			if !ok {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "theme %d does not recur within %d days\n", id, horizon)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "theme %d recurs in %d days (%s)\n", id, days, start.AddDate(0, 0, days).Format(models.DateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date as YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&horizon, "horizon", rotation.DefaultHorizonDays, "days to scan ahead")
	return cmd
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	return t, nil
}
