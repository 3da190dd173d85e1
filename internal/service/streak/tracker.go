// Package streak tracks consecutive-day completion streaks.
package streak

import (
	"fmt"
	"time"

	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// StatsRepository interface for user stats operations.
type StatsRepository interface {
	GetStats(userID uint) (*models.UserStats, error)
	UpdateStats(userID uint, update func(*models.UserStats)) (*models.UserStats, error)
}

// CompletionRepository interface for completion counting.
type CompletionRepository interface {
	CountCompletionsInRange(userID uint, start, end time.Time) (int64, error)
}

// Tracker maintains current and longest streaks. A streak counts distinct
// days with at least one completion; a second completion on the same day
// never extends it.
type Tracker struct {
	statsRepo      StatsRepository
	completionRepo CompletionRepository
	location       *time.Location
	log            *logger.Logger
}

// NewTracker creates a new streak tracker.
func NewTracker(
	userRepo *repository.UserRepository,
	taskRepo *repository.TaskRepository,
	location *time.Location,
	log *logger.Logger,
) *Tracker {
	return NewTrackerWithInterfaces(userRepo, taskRepo, location, log)
}

// NewTrackerWithInterfaces creates a new streak tracker with interface
// dependencies (useful for testing).
func NewTrackerWithInterfaces(
	statsRepo StatsRepository,
	completionRepo CompletionRepository,
	location *time.Location,
	log *logger.Logger,
) *Tracker {
	if location == nil {
		location = time.UTC
	}
	return &Tracker{
		statsRepo:      statsRepo,
		completionRepo: completionRepo,
		location:       location,
		log:            log,
	}
}

// RecordCompletion updates the streak after a task completion has been
// persisted. Only the first completion of a day moves the streak: a day
// following a completion day extends it, any other first completion
// starts a fresh streak of 1. LongestStreak only ever grows.
func (t *Tracker) RecordCompletion(userID uint, at time.Time) (*models.UserStats, error) {
	todayStart, todayEnd := t.dayBounds(at)

	todayCount, err := t.completionRepo.CountCompletionsInRange(userID, todayStart, todayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's completions: %w", err)
	}
	if todayCount != 1 {
		// Not the first completion today; the streak already moved.
		return t.statsRepo.GetStats(userID)
	}

	yesterdayStart := todayStart.AddDate(0, 0, -1)
	yesterdayCount, err := t.completionRepo.CountCompletionsInRange(userID, yesterdayStart, todayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count yesterday's completions: %w", err)
	}

	stats, err := t.statsRepo.UpdateStats(userID, func(s *models.UserStats) {
		if yesterdayCount > 0 {
			s.CurrentStreak++
		} else {
			s.CurrentStreak = 1
		}
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	t.log.Debug().
		Uint("user_id", userID).
		Int("current_streak", stats.CurrentStreak).
		Int("longest_streak", stats.LongestStreak).
		Msg("Streak updated")

	return stats, nil
}

// ResetIfMissed zeroes the current streak when the day that just ended had
// no completion. Run by the daily rollover job; LongestStreak is untouched.
func (t *Tracker) ResetIfMissed(userID uint, now time.Time) error {
	todayStart, _ := t.dayBounds(now)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	yesterdayCount, err := t.completionRepo.CountCompletionsInRange(userID, yesterdayStart, todayStart)
	if err != nil {
		return fmt.Errorf("failed to count yesterday's completions: %w", err)
	}
	if yesterdayCount > 0 {
		return nil
	}

	stats, err := t.statsRepo.GetStats(userID)
	if err != nil {
		return err
	}
	if stats.CurrentStreak == 0 {
		return nil
	}

	_, err = t.statsRepo.UpdateStats(userID, func(s *models.UserStats) {
		s.CurrentStreak = 0
	})
	if err != nil {
		return fmt.Errorf("failed to reset streak: %w", err)
	}

	t.log.Info().
		Uint("user_id", userID).
		Int("previous_streak", stats.CurrentStreak).
		Msg("Streak reset after missed day")

	return nil
}

// dayBounds returns the [start, end) interval of the calendar day containing
// at, in the tracker's timezone.
func (t *Tracker) dayBounds(at time.Time) (time.Time, time.Time) {
	local := at.In(t.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.location)
	return start, start.AddDate(0, 0, 1)
}
