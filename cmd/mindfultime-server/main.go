// Command mindfultime-server runs the MindfulTime reward core: the HTTP
// API, background jobs and metrics exporter.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apirewards "github.com/mindfultime/mindfultime-server/internal/api/rewards"
	"github.com/mindfultime/mindfultime-server/internal/cache"
	"github.com/mindfultime/mindfultime-server/internal/catalog"
	"github.com/mindfultime/mindfultime-server/internal/config"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/internal/scheduler"
	"github.com/mindfultime/mindfultime-server/internal/service/achievements"
	"github.com/mindfultime/mindfultime-server/internal/service/allocator"
	"github.com/mindfultime/mindfultime-server/internal/service/limits"
	"github.com/mindfultime/mindfultime-server/internal/service/rewards"
	"github.com/mindfultime/mindfultime-server/internal/service/streak"
	"github.com/mindfultime/mindfultime-server/internal/service/tasks"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()
	log.Info().Str("environment", cfg.Server.Environment).Msg("Starting mindfultime-server")

	db, err := repository.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	appRepo := repository.NewAppRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)

	// Catalogs
	if err := catalog.SeedAchievements(achievementRepo, cfg.Rewards.AchievementsFile, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed achievement catalog")
	}
	if err := catalog.SeedTasks(taskRepo, cfg.Rewards.TasksFile, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed task catalog")
	}

	// Cache (optional)
	var summaryCache rewards.Cache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(&cfg.Cache, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close Redis client")
			}
		}()
		summaryCache = redisCache
	}

	location, err := cfg.Scheduler.GetLocation()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid scheduler timezone")
	}

	// Services
	rewardService := rewards.NewService(
		ledgerRepo, userRepo, appRepo, achievementRepo,
		summaryCache,
		time.Duration(cfg.Cache.SummaryTTL)*time.Second,
		cfg.Rewards.HistoryPageSize,
		log.Component("rewards"),
	)
	streakTracker := streak.NewTracker(userRepo, taskRepo, location, log.Component("streak"))
	achievementService := achievements.NewService(achievementRepo, userRepo, taskRepo, ledgerRepo, log.Component("achievements"))
	allocatorService := allocator.NewService(appRepo, ledgerRepo, log.Component("allocator"))
	taskService := tasks.NewService(
		taskRepo, userRepo,
		streakTracker, rewardService, achievementService, allocatorService,
		log.Component("tasks"),
	)
	limitsService := limits.NewService(appRepo, userRepo, ledgerRepo, streakTracker, rewardService, log.Component("limits"))

	// Scheduler
	schedulerService := scheduler.NewService(cfg, limitsService, log.Component("scheduler"))
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP server
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	handler := apirewards.NewHandler(
		rewardService, taskService, achievementService, limitsService,
		userRepo, appRepo,
		log.Component("api"),
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}
