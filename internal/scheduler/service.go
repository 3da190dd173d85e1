// Package scheduler runs the background jobs: the periodic app-limit sweep
// and the midnight daily rollover.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mindfultime/mindfultime-server/internal/config"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// LimitsService interface for the jobs the scheduler drives.
type LimitsService interface {
	Sweep(ctx context.Context) error
	DailyReset(ctx context.Context, now time.Time) error
}

// Service owns the cron instance and job registration.
type Service struct {
	config *config.Config
	limits LimitsService
	log    *logger.Logger
	cron   *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.Config, limits LimitsService, log *logger.Logger) *Service {
	return &Service{
		config: cfg,
		limits: limits,
		log:    log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	sweepSpec := fmt.Sprintf("@every %dm", s.config.Scheduler.SweepInterval)
	_, err = s.cron.AddFunc(sweepSpec, func() {
		if err := s.limits.Sweep(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Limit sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register limit sweep job: %w", err)
	}

	resetExpr, err := buildCronExpression(s.config.Scheduler.DailyResetTime)
	if err != nil {
		return fmt.Errorf("failed to build daily reset expression: %w", err)
	}
	_, err = s.cron.AddFunc(resetExpr, func() {
		if err := s.limits.DailyReset(context.Background(), time.Now()); err != nil {
			s.log.Error().Err(err).Msg("Daily rollover failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register daily rollover job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("sweep", sweepSpec).
		Str("daily_reset", resetExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression converts an "HH:MM" time of day into a daily cron
// expression.
func buildCronExpression(timeOfDay string) (string, error) {
	parts := strings.Split(timeOfDay, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", timeOfDay)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
