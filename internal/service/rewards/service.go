// Package rewards implements the balance ledger: an append-only transaction
// log from which every balance read is recomputed, plus the streak bonus
// table and the cached rewards summary.
package rewards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	prommetrics "github.com/mindfultime/mindfultime-server/internal/metrics"
	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// LedgerRepository interface for transaction log operations.
type LedgerRepository interface {
	Append(txn *models.RewardTransaction) error
	GetTransactions(userID uint, limit int) ([]models.RewardTransaction, error)
	GetTransactionsByType(userID uint, txnType string) ([]models.RewardTransaction, error)
	GetBalance(userID uint) (*models.RewardBalance, error)
	GetAllocations(userID uint) ([]models.RewardAllocation, error)
	ReduceAllocations(userID uint, minutes int) (int, error)
}

// StatsRepository interface for user stats operations.
type StatsRepository interface {
	GetStats(userID uint) (*models.UserStats, error)
}

// AppRepository interface for monitored-app operations.
type AppRepository interface {
	GetByID(id uint) (*models.MonitoredApp, error)
	Update(app *models.MonitoredApp) error
}

// AchievementRepository interface for unlock records.
type AchievementRepository interface {
	GetUnlocked(userID uint) ([]models.UserAchievement, error)
	CountUnlocked(userID uint) (int64, error)
}

// Cache interface for the summary read path. May be nil when caching is
// disabled.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// EarnResult describes one earn operation.
type EarnResult struct {
	Base       int     `json:"base"`
	Bonus      int     `json:"bonus"`
	Total      int     `json:"total"`
	Multiplier float64 `json:"multiplier"`
}

// Summary is the composite rewards view served to clients.
type Summary struct {
	UserID             uint                       `json:"user_id"`
	Balance            models.RewardBalance       `json:"balance"`
	CurrentStreak      int                        `json:"current_streak"`
	LongestStreak      int                        `json:"longest_streak"`
	StreakMultiplier   float64                    `json:"streak_multiplier"`
	TotalTasksDone     int                        `json:"total_tasks_completed"`
	RecentTransactions []models.RewardTransaction `json:"recent_transactions"`
	Achievements       []models.UserAchievement   `json:"achievements"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}

// Service handles the reward ledger and derived views.
type Service struct {
	ledgerRepo      LedgerRepository
	statsRepo       StatsRepository
	appRepo         AppRepository
	achievementRepo AchievementRepository
	cache           Cache
	summaryTTL      time.Duration
	historyPageSize int
	log             *logger.Logger
}

// NewService creates a new rewards service. cache may be nil.
func NewService(
	ledgerRepo *repository.LedgerRepository,
	userRepo *repository.UserRepository,
	appRepo *repository.AppRepository,
	achievementRepo *repository.AchievementRepository,
	cache Cache,
	summaryTTL time.Duration,
	historyPageSize int,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(ledgerRepo, userRepo, appRepo, achievementRepo, cache, summaryTTL, historyPageSize, log)
}

// NewServiceWithInterfaces creates a new rewards service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	ledgerRepo LedgerRepository,
	statsRepo StatsRepository,
	appRepo AppRepository,
	achievementRepo AchievementRepository,
	cache Cache,
	summaryTTL time.Duration,
	historyPageSize int,
	log *logger.Logger,
) *Service {
	if historyPageSize <= 0 {
		historyPageSize = 100
	}
	return &Service{
		ledgerRepo:      ledgerRepo,
		statsRepo:       statsRepo,
		appRepo:         appRepo,
		achievementRepo: achievementRepo,
		cache:           cache,
		summaryTTL:      summaryTTL,
		historyPageSize: historyPageSize,
		log:             log,
	}
}

// Earn credits minutes for a completed task. When applyStreakBonus is set,
// the streak bonus table is consulted and the bonus part lands as a separate
// 'bonus' transaction so the ledger keeps base and bonus apart.
func (s *Service) Earn(ctx context.Context, userID uint, minutes int, taskID *uint, streak int, applyStreakBonus bool) (*EarnResult, error) {
	result := &EarnResult{Base: minutes, Total: minutes, Multiplier: 1.0}
	if applyStreakBonus {
		total, bonus := ApplyStreakBonus(minutes, streak)
		result.Total = total
		result.Bonus = bonus
		result.Multiplier = StreakMultiplier(streak)
	}

	now := time.Now()
	earned := &models.RewardTransaction{
		UserID:    userID,
		Type:      models.TransactionEarned,
		Amount:    result.Base,
		Reason:    "task_completed",
		TaskID:    taskID,
		Timestamp: now,
	}
	if err := s.ledgerRepo.Append(earned); err != nil {
		return nil, err
	}
	prommetrics.RecordMinutesEarned(models.TransactionEarned, result.Base)

	if result.Bonus > 0 {
		bonusTxn := &models.RewardTransaction{
			UserID:      userID,
			Type:        models.TransactionBonus,
			Amount:      result.Bonus,
			Reason:      "streak_bonus",
			TaskID:      taskID,
			Description: "Streak bonus",
			Timestamp:   now,
		}
		if err := s.ledgerRepo.Append(bonusTxn); err != nil {
			return nil, err
		}
		prommetrics.RecordMinutesEarned(models.TransactionBonus, result.Bonus)
	}

	s.log.Info().
		Uint("user_id", userID).
		Int("base", result.Base).
		Int("bonus", result.Bonus).
		Int("streak", streak).
		Msg("Minutes earned")

	s.InvalidateSummary(ctx, userID)
	return result, nil
}

// Spend debits minutes to extend an app's daily limit. Returns false without
// mutating anything when the available balance does not cover the request;
// an insufficient balance is an expected outcome, not an error.
//
// On success the spend is logged, the open allocation pool shrinks by up to
// the spent minutes (oldest allocations first, floored at zero), the app's
// limit grows and the app unblocks if the new limit exceeds its used time.
func (s *Service) Spend(ctx context.Context, userID, appID uint, minutes int, description string) (bool, error) {
	if minutes <= 0 {
		return false, nil
	}

	app, err := s.appRepo.GetByID(appID)
	if err != nil {
		return false, err
	}
	if app.UserID != userID {
		s.log.Warn().
			Uint("user_id", userID).
			Uint("app_id", appID).
			Msg("Spend rejected, app belongs to another user")
		return false, nil
	}

	balance, err := s.ledgerRepo.GetBalance(userID)
	if err != nil {
		return false, err
	}
	if balance.Available < minutes {
		s.log.Info().
			Uint("user_id", userID).
			Int("requested", minutes).
			Int("available", balance.Available).
			Msg("Spend rejected, insufficient balance")
		prommetrics.RecordSpendRejected()
		return false, nil
	}

	txn := &models.RewardTransaction{
		UserID:      userID,
		Type:        models.TransactionSpent,
		Amount:      minutes,
		Reason:      "app_time_extension",
		AppID:       &appID,
		Description: description,
		Timestamp:   time.Now(),
	}
	if err := s.ledgerRepo.Append(txn); err != nil {
		return false, err
	}

	if _, err := s.ledgerRepo.ReduceAllocations(userID, minutes); err != nil {
		return false, err
	}

	app.DailyLimit += minutes
	if app.IsBlocked && app.DailyLimit > app.UsedTime {
		app.IsBlocked = false
	}
	if err := s.appRepo.Update(app); err != nil {
		return false, err
	}

	prommetrics.RecordMinutesSpent(minutes)
	s.log.Info().
		Uint("user_id", userID).
		Uint("app_id", appID).
		Int("minutes", minutes).
		Int("new_limit", app.DailyLimit).
		Bool("blocked", app.IsBlocked).
		Msg("Minutes spent on app time")

	s.InvalidateSummary(ctx, userID)
	return true, nil
}

// GetBalance recomputes the balance from the ledger.
func (s *Service) GetBalance(ctx context.Context, userID uint) (*models.RewardBalance, error) {
	return s.ledgerRepo.GetBalance(userID)
}

// GetHistory returns the most recent transactions. A non-positive or
// oversized limit falls back to the configured page size.
func (s *Service) GetHistory(ctx context.Context, userID uint, limit int) ([]models.RewardTransaction, error) {
	if limit <= 0 || limit > s.historyPageSize {
		limit = s.historyPageSize
	}
	return s.ledgerRepo.GetTransactions(userID, limit)
}

// GetHistoryByType returns the user's transactions of one type, most recent
// first.
func (s *Service) GetHistoryByType(ctx context.Context, userID uint, txnType string) ([]models.RewardTransaction, error) {
	return s.ledgerRepo.GetTransactionsByType(userID, txnType)
}

// GetAllocations returns the user's open allocations, oldest first.
func (s *Service) GetAllocations(ctx context.Context, userID uint) ([]models.RewardAllocation, error) {
	return s.ledgerRepo.GetAllocations(userID)
}

// GetSummary assembles the composite rewards view. The summary is served
// from cache when fresh; the balance inside it is still always derived from
// the ledger at assembly time.
func (s *Service) GetSummary(ctx context.Context, userID uint) (*Summary, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, summaryKey(userID))
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("Summary cache read failed")
		} else if cached != "" {
			var summary Summary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
			s.log.Warn().Uint("user_id", userID).Msg("Discarding malformed cached summary")
		}
	}

	balance, err := s.ledgerRepo.GetBalance(userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.statsRepo.GetStats(userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.ledgerRepo.GetTransactions(userID, 10)
	if err != nil {
		return nil, err
	}
	achievements, err := s.achievementRepo.GetUnlocked(userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		UserID:             userID,
		Balance:            *balance,
		CurrentStreak:      stats.CurrentStreak,
		LongestStreak:      stats.LongestStreak,
		StreakMultiplier:   StreakMultiplier(stats.CurrentStreak),
		TotalTasksDone:     stats.TotalTasksCompleted,
		RecentTransactions: recent,
		Achievements:       achievements,
		GeneratedAt:        time.Now(),
	}

	if s.cache != nil {
		data, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, summaryKey(userID), string(data), s.summaryTTL); err != nil {
				s.log.Warn().Err(err).Uint("user_id", userID).Msg("Summary cache write failed")
			}
		}
	}

	return summary, nil
}

// InvalidateSummary drops the cached summary after a write.
func (s *Service) InvalidateSummary(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryKey(userID)); err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Summary cache invalidation failed")
	}
}

// summaryKey builds the cache key for a user's summary.
func summaryKey(userID uint) string {
	return fmt.Sprintf("mindfultime:summary:%d", userID)
}
