package models

import (
	"time"
)

// AchievementType constants for Achievement.Type.
const (
	AchievementTasksCompleted = "tasks_completed"
	AchievementTimeEarned     = "time_earned"
	AchievementStreak         = "streak"
	AchievementCategoryMaster = "category_master"
)

// Achievement is one entry of the fixed achievement catalog. The catalog is
// seeded once at startup; rows are never deleted.
type Achievement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;not null;size:100" json:"slug"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	Requirement int       `gorm:"not null" json:"requirement"`
	Type        string    `gorm:"size:50;not null" json:"type"`
	Category    string    `gorm:"size:50" json:"category"` // only for 'category_master'
	RewardBonus int       `gorm:"default:0" json:"reward_bonus"` // minutes credited on unlock
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Achievement model.
func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement records an unlock. Unlocking is a one-way transition:
// rows are inserted once and never removed, even if the triggering stat
// later decreases.
type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;index:idx_user_achievement,unique" json:"user_id"`
	User          User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	AchievementID uint        `gorm:"not null;index:idx_user_achievement,unique" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	UnlockedAt    time.Time   `gorm:"not null" json:"unlocked_at"`
}

// TableName specifies the table name for UserAchievement model.
func (UserAchievement) TableName() string {
	return "user_achievements"
}
