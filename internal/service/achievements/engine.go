// Package achievements evaluates the fixed achievement catalog against user
// stats and awards unlocks.
package achievements

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/mindfultime/mindfultime-server/internal/metrics"
	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// AchievementRepository interface for achievement operations.
type AchievementRepository interface {
	GetAll() ([]models.Achievement, error)
	IsUnlocked(userID, achievementID uint) (bool, error)
	Unlock(userID, achievementID uint) error
	GetUnlocked(userID uint) ([]models.UserAchievement, error)
}

// StatsRepository interface for user stats operations.
type StatsRepository interface {
	GetStats(userID uint) (*models.UserStats, error)
	UpdateStats(userID uint, update func(*models.UserStats)) (*models.UserStats, error)
}

// CompletionRepository interface for category completion counts.
type CompletionRepository interface {
	CountCompletionsByCategory(userID uint, category string) (int64, error)
}

// LedgerRepository interface for appending bonus transactions.
type LedgerRepository interface {
	Append(txn *models.RewardTransaction) error
}

// Progress describes one catalog entry with the user's standing against it.
type Progress struct {
	Achievement models.Achievement `json:"achievement"`
	Current     int                `json:"current"`
	Unlocked    bool               `json:"unlocked"`
	UnlockedAt  *time.Time         `json:"unlocked_at,omitempty"`
}

// Service evaluates achievements and awards unlocks.
type Service struct {
	achievementRepo AchievementRepository
	statsRepo       StatsRepository
	completionRepo  CompletionRepository
	ledgerRepo      LedgerRepository
	log             *logger.Logger
}

// NewService creates a new achievement service.
func NewService(
	achievementRepo *repository.AchievementRepository,
	userRepo *repository.UserRepository,
	taskRepo *repository.TaskRepository,
	ledgerRepo *repository.LedgerRepository,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(achievementRepo, userRepo, taskRepo, ledgerRepo, log)
}

// NewServiceWithInterfaces creates a new achievement service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	achievementRepo AchievementRepository,
	statsRepo StatsRepository,
	completionRepo CompletionRepository,
	ledgerRepo LedgerRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		achievementRepo: achievementRepo,
		statsRepo:       statsRepo,
		completionRepo:  completionRepo,
		ledgerRepo:      ledgerRepo,
		log:             log,
	}
}

// Evaluate runs a single pass over the catalog and unlocks everything the
// user's current stats satisfy. Bonus minutes granted by an unlock land in
// the ledger and in TotalTimeEarned during the pass, but thresholds crossed
// only because of those bonuses unlock on the next evaluation, not this one.
// Returns the achievements newly unlocked by this pass.
func (s *Service) Evaluate(ctx context.Context, userID uint) ([]models.Achievement, error) {
	catalog, err := s.achievementRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement catalog: %w", err)
	}

	stats, err := s.statsRepo.GetStats(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}

	var unlocked []models.Achievement
	for _, achievement := range catalog {
		already, err := s.achievementRepo.IsUnlocked(userID, achievement.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("achievement", achievement.Slug).
				Msg("Failed to check unlock state")
			continue
		}
		if already {
			continue
		}

		current, err := s.currentValue(userID, stats, &achievement)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("achievement", achievement.Slug).
				Msg("Failed to compute achievement progress")
			continue
		}
		if current < achievement.Requirement {
			continue
		}

		if err := s.award(ctx, userID, &achievement); err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("achievement", achievement.Slug).
				Msg("Failed to award achievement")
			continue
		}
		unlocked = append(unlocked, achievement)
	}

	return unlocked, nil
}

// award credits the bonus, updates stats and then records the unlock. The
// bonus lands first: a failure between the two leaves the achievement locked
// and the next evaluation retries the award.
func (s *Service) award(ctx context.Context, userID uint, achievement *models.Achievement) error {
	if achievement.RewardBonus > 0 {
		txn := &models.RewardTransaction{
			UserID:      userID,
			Type:        models.TransactionBonus,
			Amount:      achievement.RewardBonus,
			Reason:      "achievement_unlocked",
			Description: achievement.Title,
			Timestamp:   time.Now(),
		}
		if err := s.ledgerRepo.Append(txn); err != nil {
			return fmt.Errorf("failed to credit achievement bonus: %w", err)
		}
		prommetrics.RecordMinutesEarned(models.TransactionBonus, achievement.RewardBonus)

		if _, err := s.statsRepo.UpdateStats(userID, func(st *models.UserStats) {
			st.TotalTimeEarned += achievement.RewardBonus
		}); err != nil {
			return fmt.Errorf("failed to update stats with achievement bonus: %w", err)
		}
	}

	if err := s.achievementRepo.Unlock(userID, achievement.ID); err != nil {
		return err
	}

	prommetrics.RecordAchievementUnlocked(achievement.Slug, achievement.Type)
	s.log.Info().
		Uint("user_id", userID).
		Str("achievement", achievement.Slug).
		Int("bonus", achievement.RewardBonus).
		Msg("Achievement unlocked")

	return nil
}

// currentValue resolves the stat an achievement type measures.
func (s *Service) currentValue(userID uint, stats *models.UserStats, achievement *models.Achievement) (int, error) {
	switch achievement.Type {
	case models.AchievementTasksCompleted:
		return stats.TotalTasksCompleted, nil
	case models.AchievementTimeEarned:
		return stats.TotalTimeEarned, nil
	case models.AchievementStreak:
		return stats.CurrentStreak, nil
	case models.AchievementCategoryMaster:
		count, err := s.completionRepo.CountCompletionsByCategory(userID, achievement.Category)
		if err != nil {
			return 0, err
		}
		return int(count), nil
	default:
		return 0, fmt.Errorf("unknown achievement type %q", achievement.Type)
	}
}

// GetCatalog returns the full achievement catalog.
func (s *Service) GetCatalog(ctx context.Context) ([]models.Achievement, error) {
	return s.achievementRepo.GetAll()
}

// GetUserAchievements returns the user's unlock records, most recent first.
func (s *Service) GetUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	return s.achievementRepo.GetUnlocked(userID)
}

// GetProgress returns the catalog annotated with the user's standing.
func (s *Service) GetProgress(ctx context.Context, userID uint) ([]Progress, error) {
	catalog, err := s.achievementRepo.GetAll()
	if err != nil {
		return nil, err
	}
	stats, err := s.statsRepo.GetStats(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.achievementRepo.GetUnlocked(userID)
	if err != nil {
		return nil, err
	}

	unlockedAt := make(map[uint]time.Time, len(records))
	for _, record := range records {
		unlockedAt[record.AchievementID] = record.UnlockedAt
	}

	progress := make([]Progress, 0, len(catalog))
	for _, achievement := range catalog {
		entry := Progress{Achievement: achievement}
		if at, ok := unlockedAt[achievement.ID]; ok {
			entry.Unlocked = true
			entry.Current = achievement.Requirement
			t := at
			entry.UnlockedAt = &t
		} else {
			current, err := s.currentValue(userID, stats, &achievement)
			if err != nil {
				s.log.Error().
					Err(err).
					Str("achievement", achievement.Slug).
					Msg("Failed to compute achievement progress")
				current = 0
			}
			if current > achievement.Requirement {
				current = achievement.Requirement
			}
			entry.Current = current
		}
		progress = append(progress, entry)
	}
	return progress, nil
}
