// Package limits enforces daily usage limits on monitored apps: blocking,
// unblocking, usage updates from the external tracker, the periodic limit
// sweep and the midnight rollover.
package limits

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	prommetrics "github.com/mindfultime/mindfultime-server/internal/metrics"
	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// AppRepository interface for monitored-app operations.
type AppRepository interface {
	GetByID(id uint) (*models.MonitoredApp, error)
	GetByUser(userID uint) ([]models.MonitoredApp, error)
	Update(app *models.MonitoredApp) error
	UpdateFields(id uint, fields map[string]interface{}) error
	ResetDailyUsage(userID uint) error
	CountBlocked(userID uint) (int64, error)
}

// AllocationStore interface for the open allocation pool.
type AllocationStore interface {
	DeleteAllocationsByApp(userID, appID uint) error
}

// UserRepository interface for user listing and stats.
type UserRepository interface {
	List() ([]models.User, error)
	UpdateStats(userID uint, update func(*models.UserStats)) (*models.UserStats, error)
}

// StreakResetter interface for the rollover's missed-day check.
type StreakResetter interface {
	ResetIfMissed(userID uint, now time.Time) error
}

// SummaryInvalidator drops cached summaries after writes.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context, userID uint)
}

// Service enforces app time limits.
type Service struct {
	appRepo     AppRepository
	userRepo    UserRepository
	allocations AllocationStore
	streaks     StreakResetter
	invalidator SummaryInvalidator
	log         *logger.Logger

	sweepInProgress atomic.Bool
}

// NewService creates a new limits service.
func NewService(
	appRepo *repository.AppRepository,
	userRepo *repository.UserRepository,
	ledgerRepo *repository.LedgerRepository,
	streaks StreakResetter,
	invalidator SummaryInvalidator,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(appRepo, userRepo, ledgerRepo, streaks, invalidator, log)
}

// NewServiceWithInterfaces creates a new limits service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	appRepo AppRepository,
	userRepo UserRepository,
	allocations AllocationStore,
	streaks StreakResetter,
	invalidator SummaryInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		appRepo:     appRepo,
		userRepo:    userRepo,
		allocations: allocations,
		streaks:     streaks,
		invalidator: invalidator,
		log:         log,
	}
}

// UpdateUsage records the minutes an app has been used today, as reported by
// the external usage tracker. An app that reaches its limit blocks
// immediately rather than waiting for the next sweep.
func (s *Service) UpdateUsage(ctx context.Context, appID uint, usedMinutes int) (*models.MonitoredApp, error) {
	if usedMinutes < 0 {
		return nil, fmt.Errorf("used minutes must not be negative")
	}

	app, err := s.appRepo.GetByID(appID)
	if err != nil {
		return nil, err
	}

	app.UsedTime = usedMinutes
	if app.DailyLimit > 0 && app.UsedTime >= app.DailyLimit && !app.IsBlocked {
		app.IsBlocked = true
		s.log.Info().
			Uint("app_id", appID).
			Int("used", app.UsedTime).
			Int("limit", app.DailyLimit).
			Msg("App blocked, daily limit reached")
	}
	if err := s.appRepo.Update(app); err != nil {
		return nil, err
	}
	return app, nil
}

// Block forces an app into the blocked state.
func (s *Service) Block(ctx context.Context, appID uint) (*models.MonitoredApp, error) {
	return s.setBlocked(appID, true)
}

// Unblock lifts an app's block without touching its limit.
func (s *Service) Unblock(ctx context.Context, appID uint) (*models.MonitoredApp, error) {
	return s.setBlocked(appID, false)
}

func (s *Service) setBlocked(appID uint, blocked bool) (*models.MonitoredApp, error) {
	app, err := s.appRepo.GetByID(appID)
	if err != nil {
		return nil, err
	}
	if app.IsBlocked == blocked {
		return app, nil
	}
	if err := s.appRepo.UpdateFields(appID, map[string]interface{}{"is_blocked": blocked}); err != nil {
		return nil, err
	}
	app.IsBlocked = blocked
	s.log.Info().Uint("app_id", appID).Bool("blocked", blocked).Msg("App block state changed")
	return app, nil
}

// Sweep blocks every app that is at or over its daily limit. At most one
// sweep runs at a time; a tick that arrives while the previous run is still
// in flight is skipped.
func (s *Service) Sweep(ctx context.Context) error {
	if !s.sweepInProgress.CompareAndSwap(false, true) {
		s.log.Warn().Msg("Limit sweep still in progress, skipping this run")
		prommetrics.RecordSweepSkipped()
		return nil
	}
	defer s.sweepInProgress.Store(false)

	start := time.Now()
	users, err := s.userRepo.List()
	if err != nil {
		prommetrics.RecordSweepRun("error")
		return fmt.Errorf("failed to list users: %w", err)
	}

	blockedNow := 0
	blockedTotal := 0
	for _, user := range users {
		apps, err := s.appRepo.GetByUser(user.ID)
		if err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to load apps during sweep")
			continue
		}
		for i := range apps {
			app := &apps[i]
			if app.IsBlocked {
				continue
			}
			if app.DailyLimit > 0 && app.UsedTime >= app.DailyLimit {
				app.IsBlocked = true
				if err := s.appRepo.Update(app); err != nil {
					s.log.Error().Err(err).Uint("app_id", app.ID).Msg("Failed to block app during sweep")
					continue
				}
				blockedNow++
				s.log.Info().
					Uint("user_id", user.ID).
					Uint("app_id", app.ID).
					Str("app", app.Name).
					Msg("App blocked by limit sweep")
			}
		}
		count, err := s.appRepo.CountBlocked(user.ID)
		if err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to count blocked apps during sweep")
			continue
		}
		blockedTotal += int(count)
	}

	prommetrics.SetBlockedApps(blockedTotal)
	prommetrics.RecordSweepRun("success")
	prommetrics.ObserveSweepDuration(time.Since(start).Seconds())

	if blockedNow > 0 {
		s.log.Info().
			Int("blocked_now", blockedNow).
			Int("blocked_total", blockedTotal).
			Dur("duration", time.Since(start)).
			Msg("Limit sweep completed")
	}
	return nil
}

// DailyReset runs the midnight rollover: app usage counters zero out and
// blocks lift, the per-day completion counter resets, open allocations
// expire, and streaks broken by a day without completions drop to zero.
func (s *Service) DailyReset(ctx context.Context, now time.Time) error {
	users, err := s.userRepo.List()
	if err != nil {
		prommetrics.RecordDailyResetRun("error")
		return fmt.Errorf("failed to list users: %w", err)
	}

	for _, user := range users {
		if err := s.streaks.ResetIfMissed(user.ID, now); err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to check streak during rollover")
		}
		if _, err := s.userRepo.UpdateStats(user.ID, func(st *models.UserStats) {
			st.TasksCompletedToday = 0
		}); err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to reset daily counters")
		}
		if err := s.appRepo.ResetDailyUsage(user.ID); err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to reset app usage")
		}
		apps, err := s.appRepo.GetByUser(user.ID)
		if err != nil {
			s.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to load apps during rollover")
		} else {
			for _, app := range apps {
				if err := s.allocations.DeleteAllocationsByApp(user.ID, app.ID); err != nil {
					s.log.Error().Err(err).Uint("app_id", app.ID).Msg("Failed to expire allocations during rollover")
				}
			}
		}
		if s.invalidator != nil {
			s.invalidator.InvalidateSummary(ctx, user.ID)
		}
	}

	prommetrics.SetBlockedApps(0)
	prommetrics.RecordDailyResetRun("success")
	s.log.Info().Int("users", len(users)).Msg("Daily rollover completed")
	return nil
}
