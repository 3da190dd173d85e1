package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/internal/service/achievements"
	"github.com/mindfultime/mindfultime-server/internal/service/allocator"
	"github.com/mindfultime/mindfultime-server/internal/service/rewards"
	"github.com/mindfultime/mindfultime-server/internal/service/streak"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// pipelineEnv wires the full completion pipeline over an in-memory store.
type pipelineEnv struct {
	service         *Service
	rewardService   *rewards.Service
	db              *repository.DB
	userRepo        *repository.UserRepository
	appRepo         *repository.AppRepository
	taskRepo        *repository.TaskRepository
	ledgerRepo      *repository.LedgerRepository
	achievementRepo *repository.AchievementRepository
	user            *models.User
}

func setupPipeline(t *testing.T) *pipelineEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	db := &repository.DB{DB: gdb}
	require.NoError(t, db.AutoMigrate())

	log := logger.New("error", "json", "stdout")
	userRepo := repository.NewUserRepository(db)
	appRepo := repository.NewAppRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)

	user := &models.User{Email: "alice@example.com"}
	require.NoError(t, userRepo.Create(user))

	rewardService := rewards.NewService(ledgerRepo, userRepo, appRepo, achievementRepo, nil, 0, 100, log)
	tracker := streak.NewTracker(userRepo, taskRepo, time.UTC, log)
	achievementService := achievements.NewService(achievementRepo, userRepo, taskRepo, ledgerRepo, log)
	allocatorService := allocator.NewService(appRepo, ledgerRepo, log)
	service := NewService(taskRepo, userRepo, tracker, rewardService, achievementService, allocatorService, log)

	return &pipelineEnv{
		service:         service,
		rewardService:   rewardService,
		db:              db,
		userRepo:        userRepo,
		appRepo:         appRepo,
		taskRepo:        taskRepo,
		ledgerRepo:      ledgerRepo,
		achievementRepo: achievementRepo,
		user:            user,
	}
}

func (e *pipelineEnv) addTask(t *testing.T, slug, category string, reward int, requiresPhoto bool) *models.MindfulTask {
	t.Helper()
	task := &models.MindfulTask{
		Slug:          slug,
		Title:         slug,
		Category:      category,
		TimeReward:    reward,
		RequiresPhoto: requiresPhoto,
	}
	require.NoError(t, e.taskRepo.Create(task))
	return task
}

func TestCompleteTask_FirstCompletion(t *testing.T) {
	env := setupPipeline(t)
	env.addTask(t, "reading_book", models.TaskCategoryReading, 30, false)

	result, err := env.service.CompleteTask(context.Background(), env.user.ID, &CompletionRequest{
		TaskSlug: "reading_book",
	})
	require.NoError(t, err)

	assert.Equal(t, 30, result.BaseReward)
	assert.Equal(t, 0, result.StreakBonus)
	assert.Equal(t, 30, result.TotalEarned)
	assert.Equal(t, 1, result.CurrentStreak)

	balance, err := env.rewardService.GetBalance(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, balance.Available)
	assert.Equal(t, 30, balance.TotalEarned)

	stats, err := env.userRepo.GetStats(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTasksCompleted)
	assert.Equal(t, 1, stats.TasksCompletedToday)
	assert.Equal(t, 30, stats.TotalTimeEarned)
	require.NotNil(t, stats.LastCompletionAt)
}

func TestCompleteTask_StreakBonusApplied(t *testing.T) {
	env := setupPipeline(t)
	task := env.addTask(t, "reading_article", models.TaskCategoryReading, 20, false)

	// A completion yesterday and a running 6-day streak: today's first
	// completion moves it to 7 and the week multiplier kicks in.
	require.NoError(t, env.taskRepo.AddCompletion(&models.CompletedTask{
		UserID:      env.user.ID,
		TaskID:      task.ID,
		CompletedAt: time.Now().AddDate(0, 0, -1),
		TimeEarned:  20,
	}))
	_, err := env.userRepo.UpdateStats(env.user.ID, func(s *models.UserStats) {
		s.CurrentStreak = 6
		s.LongestStreak = 6
	})
	require.NoError(t, err)

	result, err := env.service.CompleteTask(context.Background(), env.user.ID, &CompletionRequest{
		TaskSlug: "reading_article",
	})
	require.NoError(t, err)

	assert.Equal(t, 7, result.CurrentStreak)
	assert.Equal(t, 20, result.BaseReward)
	assert.Equal(t, 5, result.StreakBonus) // floor(20 * 1.25) - 20
	assert.Equal(t, 25, result.TotalEarned)
	assert.Equal(t, 25, result.Completion.TimeEarned)

	// Base and bonus land as separate ledger entries.
	txns, err := env.ledgerRepo.GetTransactions(env.user.ID, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	stats, err := env.userRepo.GetStats(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, stats.TotalTimeEarned)
}

func TestCompleteTask_SecondCompletionSameDayKeepsStreak(t *testing.T) {
	env := setupPipeline(t)
	env.addTask(t, "reading_book", models.TaskCategoryReading, 30, false)
	ctx := context.Background()

	first, err := env.service.CompleteTask(ctx, env.user.ID, &CompletionRequest{TaskSlug: "reading_book"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentStreak)

	second, err := env.service.CompleteTask(ctx, env.user.ID, &CompletionRequest{TaskSlug: "reading_book"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.CurrentStreak)

	stats, err := env.userRepo.GetStats(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTasksCompleted)
	assert.Equal(t, 2, stats.TasksCompletedToday)
}

func TestCompleteTask_UnlocksAchievement(t *testing.T) {
	env := setupPipeline(t)
	env.addTask(t, "reading_book", models.TaskCategoryReading, 30, false)
	require.NoError(t, env.achievementRepo.Create(&models.Achievement{
		Slug:        "first_task",
		Title:       "First Step",
		Type:        models.AchievementTasksCompleted,
		Requirement: 1,
		RewardBonus: 10,
	}))

	result, err := env.service.CompleteTask(context.Background(), env.user.ID, &CompletionRequest{
		TaskSlug: "reading_book",
	})
	require.NoError(t, err)

	require.Len(t, result.Unlocked, 1)
	assert.Equal(t, "first_task", result.Unlocked[0].Slug)

	// 30 earned + 10 achievement bonus.
	balance, err := env.rewardService.GetBalance(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, balance.Available)
}

func TestCompleteTask_DistributesToNeedyApps(t *testing.T) {
	env := setupPipeline(t)
	env.addTask(t, "social_meetup", models.TaskCategorySocial, 60, false)

	blocked1 := &models.MonitoredApp{UserID: env.user.ID, Name: "insta", PackageName: "com.example.insta", DailyLimit: 60, UsedTime: 65, IsBlocked: true}
	blocked2 := &models.MonitoredApp{UserID: env.user.ID, Name: "tiktok", PackageName: "com.example.tiktok", DailyLimit: 60, UsedTime: 90, IsBlocked: true}
	require.NoError(t, env.appRepo.Create(blocked1))
	require.NoError(t, env.appRepo.Create(blocked2))

	result, err := env.service.CompleteTask(context.Background(), env.user.ID, &CompletionRequest{
		TaskSlug: "social_meetup",
	})
	require.NoError(t, err)

	require.Len(t, result.Grants, 2)
	for _, grant := range result.Grants {
		assert.Equal(t, 30, grant.Minutes)
		assert.Equal(t, 90, grant.NewLimit)
	}

	a, err := env.appRepo.GetByID(blocked1.ID)
	require.NoError(t, err)
	assert.False(t, a.IsBlocked, "new limit 90 exceeds used 65")

	b, err := env.appRepo.GetByID(blocked2.ID)
	require.NoError(t, err)
	assert.True(t, b.IsBlocked, "new limit 90 equals used 90, still not above")

	// The granted minutes sit in the open allocation pool and count as
	// pending until consumed or expired.
	allocs, err := env.ledgerRepo.GetAllocations(env.user.ID)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	for _, alloc := range allocs {
		assert.Equal(t, 30, alloc.Minutes)
	}

	balance, err := env.rewardService.GetBalance(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, balance.TotalEarned)
	assert.Equal(t, 60, balance.PendingAllocation)
	assert.Equal(t, 0, balance.Available)
}

func TestCompleteTask_PhotoRequired(t *testing.T) {
	env := setupPipeline(t)
	env.addTask(t, "outdoor_walk", models.TaskCategoryOutdoor, 30, true)
	ctx := context.Background()

	_, err := env.service.CompleteTask(ctx, env.user.ID, &CompletionRequest{TaskSlug: "outdoor_walk"})
	assert.ErrorIs(t, err, ErrPhotoRequired)

	// Nothing recorded, nothing credited.
	completions, err := env.taskRepo.GetCompletions(env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, completions)

	result, err := env.service.CompleteTask(ctx, env.user.ID, &CompletionRequest{
		TaskSlug: "outdoor_walk",
		PhotoURI: "file:///photos/walk.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "file:///photos/walk.jpg", result.Completion.PhotoURI)
}

func TestCompleteTask_UnknownTask(t *testing.T) {
	env := setupPipeline(t)

	_, err := env.service.CompleteTask(context.Background(), env.user.ID, &CompletionRequest{
		TaskSlug: "no_such_task",
	})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestGetRecommendedTasks_ByTimeOfDay(t *testing.T) {
	env := setupPipeline(t)
	env.addTask(t, "exercise_yoga", models.TaskCategoryExercise, 40, false)
	env.addTask(t, "meditation_short", models.TaskCategoryMeditation, 15, false)
	env.addTask(t, "outdoor_walk", models.TaskCategoryOutdoor, 30, false)
	env.addTask(t, "reading_book", models.TaskCategoryReading, 30, false)
	ctx := context.Background()

	morning := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	tasks, err := env.service.GetRecommendedTasks(ctx, morning)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Contains(t, []string{models.TaskCategoryExercise, models.TaskCategoryMeditation}, task.Category)
	}

	afternoon := time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC)
	tasks, err = env.service.GetRecommendedTasks(ctx, afternoon)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskCategoryOutdoor, tasks[0].Category)

	evening := time.Date(2026, 8, 27, 21, 0, 0, 0, time.UTC)
	tasks, err = env.service.GetRecommendedTasks(ctx, evening)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskCategoryReading, tasks[0].Category)
}

func TestCreateCustomTask(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	task, err := env.service.CreateCustomTask(ctx, "Water the Plants!", "Garden care", 20)
	require.NoError(t, err)
	assert.Equal(t, "custom_water_the_plants", task.Slug)
	assert.Equal(t, models.TaskCategoryCustom, task.Category)
	assert.True(t, task.IsCustom)

	_, err = env.service.CreateCustomTask(ctx, "Too generous", "", 500)
	assert.ErrorIs(t, err, ErrInvalidReward)
}
