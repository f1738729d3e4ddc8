// Package scheduler fires synthesis cycles on a fixed interval per user,
// plus a once-a-day briefing pass with a wider lookback window.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/daybrief/daybrief/synthesis"
)

// UserLister enumerates the users to synthesize for. Deployments back this
// by their user system; the default wiring uses a static list from config.
type UserLister func(ctx context.Context) ([]string, error)

// Config wires a scheduler.
type Config struct {
	Orchestrator *synthesis.Orchestrator
	Users        UserLister

	// Interval between regular cycles. Default 15 minutes.
	Interval time.Duration

	// DailyHour is the local hour (0-23) of the daily briefing pass, which
	// runs with a 24h lookback. Negative disables it.
	DailyHour int
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *synthesis.Orchestrator
	users        UserLister
	interval     time.Duration
	dailyHour    int
}

func New(cfg Config) (*Scheduler, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("scheduler: orchestrator required")
	}
	if cfg.Users == nil {
		return nil, errors.New("scheduler: user lister required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		cron:         cron.New(),
		orchestrator: cfg.Orchestrator,
		users:        cfg.Users,
		interval:     interval,
		dailyHour:    cfg.DailyHour,
	}, nil
}

// Start registers the cron entries and begins firing. Triggers for users
// with in-flight cycles are skipped by the orchestrator, so overlapping
// entries are harmless.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.runAll(ctx, 0)
	}); err != nil {
		return fmt.Errorf("scheduler: interval entry: %w", err)
	}

	if s.dailyHour >= 0 && s.dailyHour <= 23 {
		daily := fmt.Sprintf("0 %d * * *", s.dailyHour)
		if _, err := s.cron.AddFunc(daily, func() {
			s.runAll(ctx, 24*time.Hour)
		}); err != nil {
			return fmt.Errorf("scheduler: daily entry: %w", err)
		}
	}

	s.cron.Start()
	slog.Info("scheduler: started", "interval", s.interval, "daily_hour", s.dailyHour)
	return nil
}

// runAll triggers one cycle per user. lookback zero means "since the last
// insight"; the daily pass widens it to a full day.
func (s *Scheduler) runAll(ctx context.Context, lookback time.Duration) {
	users, err := s.users(ctx)
	if err != nil {
		slog.Error("scheduler: user listing failed", "error", err)
		return
	}
	for _, userID := range users {
		result, err := s.orchestrator.Trigger(ctx, userID, lookback)
		switch {
		case errors.Is(err, synthesis.ErrCycleInFlight):
			// Skipped, never queued.
		case errors.Is(err, synthesis.ErrShuttingDown):
			return
		case err != nil:
			slog.Error("scheduler: cycle failed",
				"user_id", userID,
				"state", result.State,
				"error", err,
			)
		}
	}
}

// Stop halts new firings and waits for running entry functions to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler: stopped")
}
