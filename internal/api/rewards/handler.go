// Package rewards provides the REST API of the reward core: balances,
// transaction history, achievements, the rewards summary, task completion
// and spending earned minutes on app time.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/service/achievements"
	"github.com/mindfultime/mindfultime-server/internal/service/rewards"
	"github.com/mindfultime/mindfultime-server/internal/service/tasks"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

// RewardService interface for ledger operations.
type RewardService interface {
	GetBalance(ctx context.Context, userID uint) (*models.RewardBalance, error)
	GetHistory(ctx context.Context, userID uint, limit int) ([]models.RewardTransaction, error)
	GetHistoryByType(ctx context.Context, userID uint, txnType string) ([]models.RewardTransaction, error)
	GetAllocations(ctx context.Context, userID uint) ([]models.RewardAllocation, error)
	GetSummary(ctx context.Context, userID uint) (*rewards.Summary, error)
	Spend(ctx context.Context, userID, appID uint, minutes int, description string) (bool, error)
}

// TaskService interface for the completion pipeline and task catalog.
type TaskService interface {
	CompleteTask(ctx context.Context, userID uint, req *tasks.CompletionRequest) (*tasks.CompletionResult, error)
	GetTasks(ctx context.Context, category string) ([]models.MindfulTask, error)
	GetRecommendedTasks(ctx context.Context, at time.Time) ([]models.MindfulTask, error)
	GetHistory(ctx context.Context, userID uint) ([]models.CompletedTask, error)
	CreateCustomTask(ctx context.Context, title, description string, timeReward int) (*models.MindfulTask, error)
}

// AchievementService interface for achievement reads.
type AchievementService interface {
	GetCatalog(ctx context.Context) ([]models.Achievement, error)
	GetUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error)
	GetProgress(ctx context.Context, userID uint) ([]achievements.Progress, error)
}

// LimitsService interface for app block state and usage updates.
type LimitsService interface {
	UpdateUsage(ctx context.Context, appID uint, usedMinutes int) (*models.MonitoredApp, error)
	Block(ctx context.Context, appID uint) (*models.MonitoredApp, error)
	Unblock(ctx context.Context, appID uint) (*models.MonitoredApp, error)
}

// UserStore interface for user records.
type UserStore interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetStats(userID uint) (*models.UserStats, error)
}

// AppStore interface for monitored-app records.
type AppStore interface {
	Create(app *models.MonitoredApp) error
	GetByUser(userID uint) ([]models.MonitoredApp, error)
	GetBlocked(userID uint) ([]models.MonitoredApp, error)
}

// Handler handles reward API requests.
type Handler struct {
	rewardService      RewardService
	taskService        TaskService
	achievementService AchievementService
	limitsService      LimitsService
	users              UserStore
	apps               AppStore
	log                *logger.Logger
}

// NewHandler creates a new rewards handler.
func NewHandler(
	rewardService RewardService,
	taskService TaskService,
	achievementService AchievementService,
	limitsService LimitsService,
	users UserStore,
	apps AppStore,
	log *logger.Logger,
) *Handler {
	return &Handler{
		rewardService:      rewardService,
		taskService:        taskService,
		achievementService: achievementService,
		limitsService:      limitsService,
		users:              users,
		apps:               apps,
		log:                log,
	}
}

// RegisterRoutes attaches all reward endpoints under /api/v1.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")

	api.POST("/users", h.CreateUser)
	api.GET("/users/:id", h.GetUser)
	api.GET("/users/:id/stats", h.GetUserStats)

	api.GET("/users/:id/rewards/balance", h.GetBalance)
	api.GET("/users/:id/rewards/history", h.GetHistory)
	api.GET("/users/:id/rewards/allocations", h.GetAllocations)
	api.GET("/users/:id/rewards/summary", h.GetSummary)
	api.POST("/users/:id/rewards/spend", h.Spend)

	api.GET("/users/:id/achievements", h.GetUserAchievements)
	api.GET("/achievements", h.GetAchievementCatalog)
	api.GET("/rewards/streak-bonuses", h.GetStreakBonuses)

	api.GET("/tasks", h.GetTasks)
	api.GET("/tasks/recommended", h.GetRecommendedTasks)
	api.POST("/users/:id/tasks", h.CreateCustomTask)
	api.POST("/users/:id/tasks/complete", h.CompleteTask)
	api.GET("/users/:id/tasks/history", h.GetTaskHistory)

	api.GET("/users/:id/apps", h.GetApps)
	api.POST("/users/:id/apps", h.CreateApp)
	api.PUT("/apps/:id/usage", h.UpdateAppUsage)
	api.POST("/apps/:id/block", h.BlockApp)
	api.POST("/apps/:id/unblock", h.UnblockApp)
}

// CreateUser registers a new user.
// POST /api/v1/users.
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.users.GetByEmail(req.Email); err == nil {
		h.errorResponse(c, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.log.Error().Err(err).Str("email", req.Email).Msg("Failed to check email")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user := &models.User{Email: req.Email, Name: req.Name}
	if err := h.users.Create(user); err != nil {
		h.log.Error().Err(err).Str("email", req.Email).Msg("Failed to create user")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.log.Info().Uint("user_id", user.ID).Msg("User created")
	c.JSON(http.StatusCreated, user)
}

// GetUser returns one user.
// GET /api/v1/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.errorResponse(c, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUserStats returns a user's cumulative counters and streaks.
// GET /api/v1/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.users.GetStats(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get stats")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetBalance returns the derived reward balance.
// GET /api/v1/users/:id/rewards/balance.
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	balance, err := h.rewardService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get balance")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"balance":      balance,
		"generated_at": time.Now().UTC(),
	})
}

// GetHistory returns recent ledger transactions, optionally filtered to a
// single transaction type.
// GET /api/v1/users/:id/rewards/history?limit=50&type=bonus.
func (h *Handler) GetHistory(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := h.parseLimit(c, 0)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var history []models.RewardTransaction
	switch txnType := c.Query("type"); txnType {
	case "":
		history, err = h.rewardService.GetHistory(c.Request.Context(), userID, limit)
	case models.TransactionEarned, models.TransactionSpent, models.TransactionBonus:
		history, err = h.rewardService.GetHistoryByType(c.Request.Context(), userID, txnType)
	default:
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid transaction type: %s", txnType))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get history")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"transactions": history,
		"count":        len(history),
		"generated_at": time.Now().UTC(),
	})
}

// GetAllocations returns the open allocation pool.
// GET /api/v1/users/:id/rewards/allocations.
func (h *Handler) GetAllocations(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	allocations, err := h.rewardService.GetAllocations(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get allocations")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve allocations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"allocations":  allocations,
		"generated_at": time.Now().UTC(),
	})
}

// GetSummary returns the composite rewards view.
// GET /api/v1/users/:id/rewards/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.rewardService.GetSummary(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get summary")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Spend debits minutes to extend an app's daily limit.
// POST /api/v1/users/:id/rewards/spend.
func (h *Handler) Spend(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		AppID       uint   `json:"app_id" binding:"required"`
		Minutes     int    `json:"minutes" binding:"required,min=1"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.rewardService.Spend(c.Request.Context(), userID, req.AppID, req.Minutes, req.Description)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.errorResponse(c, http.StatusNotFound, "App not found")
			return
		}
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to spend minutes")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to spend minutes")
		return
	}
	if !ok {
		h.errorResponse(c, http.StatusConflict, "Insufficient balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"app_id":       req.AppID,
		"minutes":      req.Minutes,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserAchievements returns the catalog annotated with unlock progress.
// GET /api/v1/users/:id/achievements.
func (h *Handler) GetUserAchievements(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	progress, err := h.achievementService.GetProgress(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get achievements")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve achievements")
		return
	}

	unlocked := 0
	for _, entry := range progress {
		if entry.Unlocked {
			unlocked++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"achievements": progress,
		"unlocked":     unlocked,
		"total":        len(progress),
		"generated_at": time.Now().UTC(),
	})
}

// GetAchievementCatalog returns the full achievement catalog.
// GET /api/v1/achievements.
func (h *Handler) GetAchievementCatalog(c *gin.Context) {
	catalog, err := h.achievementService.GetCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get achievement catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve achievement catalog")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"achievements": catalog,
		"count":        len(catalog),
	})
}

// GetStreakBonuses returns the streak bonus table.
// GET /api/v1/rewards/streak-bonuses.
func (h *Handler) GetStreakBonuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tiers": rewards.BonusTiers(),
	})
}

// GetTasks returns the task catalog, optionally filtered.
// GET /api/v1/tasks?category=outdoor.
func (h *Handler) GetTasks(c *gin.Context) {
	category := c.Query("category")
	taskList, err := h.taskService.GetTasks(c.Request.Context(), category)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get tasks")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve tasks")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": taskList,
		"count": len(taskList),
	})
}

// GetRecommendedTasks returns tasks fitting the current time of day.
// GET /api/v1/tasks/recommended.
func (h *Handler) GetRecommendedTasks(c *gin.Context) {
	taskList, err := h.taskService.GetRecommendedTasks(c.Request.Context(), time.Now())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get recommended tasks")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve recommended tasks")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": taskList,
		"count": len(taskList),
	})
}

// CreateCustomTask adds a user-defined task to the catalog.
// POST /api/v1/users/:id/tasks.
func (h *Handler) CreateCustomTask(c *gin.Context) {
	if _, err := h.parseID(c); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		TimeReward  int    `json:"time_reward" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.taskService.CreateCustomTask(c.Request.Context(), req.Title, req.Description, req.TimeReward)
	if err != nil {
		if errors.Is(err, tasks.ErrInvalidReward) {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("title", req.Title).Msg("Failed to create custom task")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

// CompleteTask runs the completion pipeline.
// POST /api/v1/users/:id/tasks/complete.
func (h *Handler) CompleteTask(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req tasks.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.taskService.CompleteTask(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, tasks.ErrTaskNotFound):
			h.errorResponse(c, http.StatusNotFound, "Task not found")
		case errors.Is(err, tasks.ErrPhotoRequired):
			h.errorResponse(c, http.StatusBadRequest, "This task requires a photo")
		default:
			h.log.Error().Err(err).Uint("user_id", userID).Str("task", req.TaskSlug).
				Msg("Failed to complete task")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to complete task")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"result":       result,
		"generated_at": time.Now().UTC(),
	})
}

// GetTaskHistory returns the user's completions.
// GET /api/v1/users/:id/tasks/history.
func (h *Handler) GetTaskHistory(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	completions, err := h.taskService.GetHistory(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get task history")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve task history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"completions":  completions,
		"count":        len(completions),
		"generated_at": time.Now().UTC(),
	})
}

// GetApps returns the user's monitored apps. With blocked=true only the
// currently blocked apps are listed.
// GET /api/v1/users/:id/apps?blocked=true.
func (h *Handler) GetApps(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var apps []models.MonitoredApp
	if c.Query("blocked") == "true" {
		apps, err = h.apps.GetBlocked(userID)
	} else {
		apps, err = h.apps.GetByUser(userID)
	}
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get apps")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve apps")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"apps":         apps,
		"count":        len(apps),
		"generated_at": time.Now().UTC(),
	})
}

// CreateApp registers a monitored app for a user.
// POST /api/v1/users/:id/apps.
func (h *Handler) CreateApp(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		PackageName string `json:"package_name" binding:"required"`
		Category    string `json:"category"`
		DailyLimit  int    `json:"daily_limit" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	app := &models.MonitoredApp{
		UserID:      userID,
		Name:        req.Name,
		PackageName: req.PackageName,
		Category:    req.Category,
		DailyLimit:  req.DailyLimit,
	}
	if err := h.apps.Create(app); err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to create app")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create app")
		return
	}
	c.JSON(http.StatusCreated, app)
}

// UpdateAppUsage records usage minutes reported by the external tracker.
// PUT /api/v1/apps/:id/usage.
func (h *Handler) UpdateAppUsage(c *gin.Context) {
	appID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		UsedMinutes *int `json:"used_minutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	app, err := h.limitsService.UpdateUsage(c.Request.Context(), appID, *req.UsedMinutes)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.errorResponse(c, http.StatusNotFound, "App not found")
			return
		}
		h.log.Error().Err(err).Uint("app_id", appID).Msg("Failed to update usage")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update usage")
		return
	}
	c.JSON(http.StatusOK, app)
}

// BlockApp forces an app into the blocked state.
// POST /api/v1/apps/:id/block.
func (h *Handler) BlockApp(c *gin.Context) {
	h.setBlocked(c, true)
}

// UnblockApp lifts an app's block.
// POST /api/v1/apps/:id/unblock.
func (h *Handler) UnblockApp(c *gin.Context) {
	h.setBlocked(c, false)
}

func (h *Handler) setBlocked(c *gin.Context, blocked bool) {
	appID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var app *models.MonitoredApp
	if blocked {
		app, err = h.limitsService.Block(c.Request.Context(), appID)
	} else {
		app, err = h.limitsService.Unblock(c.Request.Context(), appID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.errorResponse(c, http.StatusNotFound, "App not found")
			return
		}
		h.log.Error().Err(err).Uint("app_id", appID).Msg("Failed to change block state")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to change block state")
		return
	}
	c.JSON(http.StatusOK, app)
}

// parseID extracts the :id path parameter.
func (h *Handler) parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ID: %s", idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000")
	}
	return limit, nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
