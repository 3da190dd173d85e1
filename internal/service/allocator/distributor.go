// Package allocator distributes earned minutes across monitored apps by
// raising their daily limits.
package allocator

import (
	"context"
	"fmt"
	"time"

	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// AppRepository interface for monitored-app operations.
type AppRepository interface {
	GetByUser(userID uint) ([]models.MonitoredApp, error)
	Update(app *models.MonitoredApp) error
}

// AllocationRecorder interface for the open allocation pool.
type AllocationRecorder interface {
	CreateAllocation(alloc *models.RewardAllocation) error
}

// Grant describes the minutes one app received from a distribution.
type Grant struct {
	AppID     uint   `json:"app_id"`
	AppName   string `json:"app_name"`
	Minutes   int    `json:"minutes"`
	NewLimit  int    `json:"new_limit"`
	Unblocked bool   `json:"unblocked"`
}

// Service splits earned minutes across apps that need them.
type Service struct {
	appRepo     AppRepository
	allocations AllocationRecorder
	log         *logger.Logger
}

// NewService creates a new allocator service.
func NewService(appRepo *repository.AppRepository, ledgerRepo *repository.LedgerRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(appRepo, ledgerRepo, log)
}

// NewServiceWithInterfaces creates a new allocator service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(appRepo AppRepository, allocations AllocationRecorder, log *logger.Logger) *Service {
	return &Service{appRepo: appRepo, allocations: allocations, log: log}
}

// Distribute splits minutes across the user's apps. Blocked apps and apps at
// 90% or more of their daily limit are targeted first; when no app needs
// time, every app shares. Each target's limit grows by an equal integer
// share; the division remainder stays undistributed. A blocked app whose new
// limit exceeds its used time unblocks.
//
// Each grant is also recorded as an open allocation, so granted minutes count
// as pending in the balance until a spend consumes them or the midnight
// rollover clears them.
//
// A user with no monitored apps gets an empty distribution, not an error.
func (s *Service) Distribute(ctx context.Context, userID uint, minutes int) ([]Grant, error) {
	if minutes <= 0 {
		return nil, nil
	}

	apps, err := s.appRepo.GetByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load apps: %w", err)
	}
	if len(apps) == 0 {
		return nil, nil
	}

	targets := make([]*models.MonitoredApp, 0, len(apps))
	for i := range apps {
		if apps[i].IsBlocked || apps[i].NearLimit() {
			targets = append(targets, &apps[i])
		}
	}
	if len(targets) == 0 {
		for i := range apps {
			targets = append(targets, &apps[i])
		}
	}

	share := minutes / len(targets)
	if share == 0 {
		s.log.Debug().
			Uint("user_id", userID).
			Int("minutes", minutes).
			Int("targets", len(targets)).
			Msg("Distribution share rounds to zero, nothing granted")
		return nil, nil
	}

	now := time.Now()
	grants := make([]Grant, 0, len(targets))
	for _, app := range targets {
		app.DailyLimit += share
		unblocked := false
		if app.IsBlocked && app.DailyLimit > app.UsedTime {
			app.IsBlocked = false
			unblocked = true
		}
		if err := s.appRepo.Update(app); err != nil {
			return grants, fmt.Errorf("failed to update app %d: %w", app.ID, err)
		}
		if err := s.allocations.CreateAllocation(&models.RewardAllocation{
			UserID:      userID,
			AppID:       app.ID,
			Minutes:     share,
			AllocatedAt: now,
		}); err != nil {
			return grants, fmt.Errorf("failed to record allocation for app %d: %w", app.ID, err)
		}
		grants = append(grants, Grant{
			AppID:     app.ID,
			AppName:   app.Name,
			Minutes:   share,
			NewLimit:  app.DailyLimit,
			Unblocked: unblocked,
		})
	}

	s.log.Info().
		Uint("user_id", userID).
		Int("minutes", minutes).
		Int("share", share).
		Int("targets", len(targets)).
		Int("remainder", minutes-share*len(targets)).
		Msg("Distributed earned minutes")

	return grants, nil
}
