// Package models defines domain models for the MindfulTime reward system.
package models

import (
	"time"
)

// User represents an app user account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// UserStats holds cumulative per-user counters consumed by the streak
// tracker and the achievement engine. All counters are monotonic except
// CurrentStreak (resets to 0 after a missed day) and TasksCompletedToday
// (cleared by the daily rollover job).
type UserStats struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	User                User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	TotalTasksCompleted int        `gorm:"default:0" json:"total_tasks_completed"`
	TotalTimeEarned     int        `gorm:"default:0" json:"total_time_earned"` // minutes, streak bonus included
	TotalTimeSaved      int        `gorm:"default:0" json:"total_time_saved"`  // minutes
	CurrentStreak       int        `gorm:"default:0" json:"current_streak"`
	LongestStreak       int        `gorm:"default:0" json:"longest_streak"`
	TasksCompletedToday int        `gorm:"default:0" json:"tasks_completed_today"`
	LastCompletionAt    *time.Time `json:"last_completion_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName specifies the table name for UserStats model.
func (UserStats) TableName() string {
	return "user_stats"
}
