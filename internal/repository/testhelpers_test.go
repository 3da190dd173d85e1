package repository

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mindfultime/mindfultime-server/internal/models"
)

// setupTestDB creates an in-memory SQLite database with all tables migrated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	err = db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.MonitoredApp{},
		&models.MindfulTask{},
		&models.CompletedTask{},
		&models.RewardTransaction{},
		&models.RewardAllocation{},
		&models.Achievement{},
		&models.UserAchievement{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestUser creates a test user with a stats row.
func createTestUser(t *testing.T, db *DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Email: fmt.Sprintf("%s-%d@example.com", name, time.Now().UnixNano()),
		Name:  name,
	}
	repo := NewUserRepository(db)
	if err := repo.Create(user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// createTestApp creates a monitored app for a user.
func createTestApp(t *testing.T, db *DB, userID uint, name string, dailyLimit, usedTime int, blocked bool) *models.MonitoredApp {
	t.Helper()

	app := &models.MonitoredApp{
		UserID:      userID,
		Name:        name,
		PackageName: "com.example." + name,
		Category:    models.AppCategorySocialMedia,
		DailyLimit:  dailyLimit,
		UsedTime:    usedTime,
		IsBlocked:   blocked,
	}
	if err := NewAppRepository(db).Create(app); err != nil {
		t.Fatalf("Failed to create test app: %v", err)
	}
	return app
}

// createTestTask creates a catalog task.
func createTestTask(t *testing.T, db *DB, slug, category string, reward int) *models.MindfulTask {
	t.Helper()

	task := &models.MindfulTask{
		Slug:       slug,
		Title:      slug,
		Category:   category,
		TimeReward: reward,
	}
	if err := NewTaskRepository(db).Create(task); err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}
	return task
}

// createTestAchievement creates a catalog achievement.
func createTestAchievement(t *testing.T, db *DB, slug, achType string, requirement, bonus int) *models.Achievement {
	t.Helper()

	achievement := &models.Achievement{
		Slug:        slug,
		Title:       slug,
		Type:        achType,
		Requirement: requirement,
		RewardBonus: bonus,
	}
	if err := NewAchievementRepository(db).Create(achievement); err != nil {
		t.Fatalf("Failed to create test achievement: %v", err)
	}
	return achievement
}
