// Package tasks implements the completion pipeline, the one mutating entry
// point of the reward core, plus task catalog reads.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	prommetrics "github.com/mindfultime/mindfultime-server/internal/metrics"
	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/internal/service/allocator"
	"github.com/mindfultime/mindfultime-server/internal/service/rewards"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// Pipeline validation errors.
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrPhotoRequired = errors.New("task requires a photo")
	ErrInvalidReward = errors.New("time reward must be between 1 and 120 minutes")
)

// TaskRepository interface for task catalog and completion operations.
type TaskRepository interface {
	Create(task *models.MindfulTask) error
	GetBySlug(slug string) (*models.MindfulTask, error)
	GetAll() ([]models.MindfulTask, error)
	GetByCategory(category string) ([]models.MindfulTask, error)
	AddCompletion(completion *models.CompletedTask) error
	UpdateCompletion(completion *models.CompletedTask) error
	GetCompletions(userID uint) ([]models.CompletedTask, error)
}

// StatsRepository interface for user stats operations.
type StatsRepository interface {
	UpdateStats(userID uint, update func(*models.UserStats)) (*models.UserStats, error)
}

// StreakTracker interface for streak updates.
type StreakTracker interface {
	RecordCompletion(userID uint, at time.Time) (*models.UserStats, error)
}

// RewardLedger interface for crediting earned minutes.
type RewardLedger interface {
	Earn(ctx context.Context, userID uint, minutes int, taskID *uint, streak int, applyStreakBonus bool) (*rewards.EarnResult, error)
}

// AchievementEvaluator interface for the post-completion achievement pass.
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, userID uint) ([]models.Achievement, error)
}

// Distributor interface for spreading earned minutes across apps.
type Distributor interface {
	Distribute(ctx context.Context, userID uint, minutes int) ([]allocator.Grant, error)
}

// CompletionRequest carries the client-supplied fields of a completion.
type CompletionRequest struct {
	TaskSlug string `json:"task_slug" binding:"required"`
	PhotoURI string `json:"photo_uri"`
	Notes    string `json:"notes"`
}

// CompletionResult is everything one completion produced.
type CompletionResult struct {
	Completion    *models.CompletedTask `json:"completion"`
	BaseReward    int                   `json:"base_reward"`
	StreakBonus   int                   `json:"streak_bonus"`
	TotalEarned   int                   `json:"total_earned"`
	Multiplier    float64               `json:"multiplier"`
	CurrentStreak int                   `json:"current_streak"`
	Unlocked      []models.Achievement  `json:"unlocked_achievements"`
	Grants        []allocator.Grant     `json:"grants"`
}

// Service runs the completion pipeline.
type Service struct {
	taskRepo     TaskRepository
	statsRepo    StatsRepository
	streaks      StreakTracker
	ledger       RewardLedger
	achievements AchievementEvaluator
	distributor  Distributor
	log          *logger.Logger

	// userLocks serializes completions per user so racing requests cannot
	// double-extend a streak or interleave ledger writes.
	userLocks sync.Map
}

// NewService creates a new task service.
func NewService(
	taskRepo *repository.TaskRepository,
	userRepo *repository.UserRepository,
	streaks StreakTracker,
	ledger RewardLedger,
	achievements AchievementEvaluator,
	distributor Distributor,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(taskRepo, userRepo, streaks, ledger, achievements, distributor, log)
}

// NewServiceWithInterfaces creates a new task service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	taskRepo TaskRepository,
	statsRepo StatsRepository,
	streaks StreakTracker,
	ledger RewardLedger,
	achievements AchievementEvaluator,
	distributor Distributor,
	log *logger.Logger,
) *Service {
	return &Service{
		taskRepo:     taskRepo,
		statsRepo:    statsRepo,
		streaks:      streaks,
		ledger:       ledger,
		achievements: achievements,
		distributor:  distributor,
		log:          log,
	}
}

// CompleteTask runs the full pipeline for one completion:
// validate, record the completion, bump stats, move the streak, credit the
// ledger with the streak bonus applied, evaluate achievements, distribute
// the earned minutes across apps.
//
// Once the completion row and the ledger credit are persisted they stay
// persisted: a failure in the achievement pass or the distribution is logged
// and the result reports what did happen. Earlier failures abort with an
// error before any minutes are credited.
func (s *Service) CompleteTask(ctx context.Context, userID uint, req *CompletionRequest) (*CompletionResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	task, err := s.taskRepo.GetBySlug(req.TaskSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if task.RequiresPhoto && req.PhotoURI == "" {
		return nil, ErrPhotoRequired
	}

	now := time.Now()
	completion := &models.CompletedTask{
		UserID:      userID,
		TaskID:      task.ID,
		CompletedAt: now,
		TimeEarned:  task.TimeReward,
		PhotoURI:    req.PhotoURI,
		Notes:       req.Notes,
	}
	if err := s.taskRepo.AddCompletion(completion); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	if _, err := s.statsRepo.UpdateStats(userID, func(st *models.UserStats) {
		st.TotalTasksCompleted++
		st.TasksCompletedToday++
		st.LastCompletionAt = &now
	}); err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}

	stats, err := s.streaks.RecordCompletion(userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	earned, err := s.ledger.Earn(ctx, userID, task.TimeReward, &task.ID, stats.CurrentStreak, true)
	if err != nil {
		return nil, fmt.Errorf("failed to credit reward: %w", err)
	}

	if earned.Total != completion.TimeEarned {
		completion.TimeEarned = earned.Total
		if err := s.taskRepo.UpdateCompletion(completion); err != nil {
			s.log.Error().Err(err).Uint("completion_id", completion.ID).
				Msg("Failed to settle completion amount")
		}
	}

	if _, err := s.statsRepo.UpdateStats(userID, func(st *models.UserStats) {
		st.TotalTimeEarned += earned.Total
	}); err != nil {
		s.log.Error().Err(err).Uint("user_id", userID).
			Msg("Failed to accumulate earned time in stats")
	}

	result := &CompletionResult{
		Completion:    completion,
		BaseReward:    earned.Base,
		StreakBonus:   earned.Bonus,
		TotalEarned:   earned.Total,
		Multiplier:    earned.Multiplier,
		CurrentStreak: stats.CurrentStreak,
	}

	unlocked, err := s.achievements.Evaluate(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Uint("user_id", userID).Msg("Achievement evaluation failed")
	} else {
		result.Unlocked = unlocked
	}

	grants, err := s.distributor.Distribute(ctx, userID, earned.Total)
	if err != nil {
		s.log.Error().Err(err).Uint("user_id", userID).Msg("Distribution failed")
	} else {
		result.Grants = grants
	}

	prommetrics.RecordTaskCompleted(task.Category)
	prommetrics.ObservePipelineDuration(time.Since(start).Seconds())

	s.log.Info().
		Uint("user_id", userID).
		Str("task", task.Slug).
		Int("earned", earned.Total).
		Int("streak", stats.CurrentStreak).
		Int("unlocked", len(result.Unlocked)).
		Msg("Task completed")

	return result, nil
}

// GetTasks returns the task catalog, optionally filtered by category.
func (s *Service) GetTasks(ctx context.Context, category string) ([]models.MindfulTask, error) {
	if category != "" {
		return s.taskRepo.GetByCategory(category)
	}
	return s.taskRepo.GetAll()
}

// GetRecommendedTasks suggests catalog tasks fitting the time of day:
// exercise and meditation in the morning, outdoor and social activities in
// the afternoon, reading and creative work in the evening.
func (s *Service) GetRecommendedTasks(ctx context.Context, at time.Time) ([]models.MindfulTask, error) {
	var categories []string
	switch hour := at.Hour(); {
	case hour < 12:
		categories = []string{models.TaskCategoryExercise, models.TaskCategoryMeditation}
	case hour < 18:
		categories = []string{models.TaskCategoryOutdoor, models.TaskCategorySocial}
	default:
		categories = []string{models.TaskCategoryReading, models.TaskCategoryCreative}
	}

	var recommended []models.MindfulTask
	for _, category := range categories {
		tasks, err := s.taskRepo.GetByCategory(category)
		if err != nil {
			return nil, err
		}
		recommended = append(recommended, tasks...)
	}
	return recommended, nil
}

// GetHistory returns the user's completions, most recent first.
func (s *Service) GetHistory(ctx context.Context, userID uint) ([]models.CompletedTask, error) {
	return s.taskRepo.GetCompletions(userID)
}

// CreateCustomTask adds a user-defined task to the catalog.
func (s *Service) CreateCustomTask(ctx context.Context, title, description string, timeReward int) (*models.MindfulTask, error) {
	if timeReward < 1 || timeReward > 120 {
		return nil, ErrInvalidReward
	}
	task := &models.MindfulTask{
		Slug:        "custom_" + slugify(title),
		Title:       title,
		Description: description,
		Category:    models.TaskCategoryCustom,
		TimeReward:  timeReward,
		Icon:        "star-outline",
		IsCustom:    true,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create custom task: %w", err)
	}
	return task, nil
}

// userLock returns the mutex serializing one user's completions.
func (s *Service) userLock(userID uint) *sync.Mutex {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// slugify lowercases a title and collapses everything outside [a-z0-9] to
// single underscores.
func slugify(title string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
