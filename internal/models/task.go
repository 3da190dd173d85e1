package models

import (
	"time"
)

// MindfulTask represents an activity a user can complete to earn screen
// time (a walk, a reading session, a meditation, ...).
type MindfulTask struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Slug          string    `gorm:"uniqueIndex;not null;size:100" json:"slug"`
	Title         string    `gorm:"not null;size:255" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	Category      string    `gorm:"size:50;index" json:"category"`
	TimeReward    int       `gorm:"not null" json:"time_reward"` // minutes earned on completion
	Icon          string    `gorm:"size:50" json:"icon"`
	RequiresPhoto bool      `gorm:"default:false" json:"requires_photo"`
	IsCustom      bool      `gorm:"default:false" json:"is_custom"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for MindfulTask model.
func (MindfulTask) TableName() string {
	return "mindful_tasks"
}

// CompletedTask records a single completion of a mindful task by a user.
type CompletedTask struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	User        User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	TaskID      uint        `gorm:"not null;index" json:"task_id"`
	Task        MindfulTask `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	CompletedAt time.Time   `gorm:"not null;index" json:"completed_at"`
	TimeEarned  int         `gorm:"not null" json:"time_earned"` // minutes credited, streak bonus included
	PhotoURI    string      `gorm:"type:text" json:"photo_uri"`
	Notes       string      `gorm:"type:text" json:"notes"`
}

// TableName specifies the table name for CompletedTask model.
func (CompletedTask) TableName() string {
	return "completed_tasks"
}

// TaskCategory constants.
const (
	TaskCategoryOutdoor    = "outdoor"
	TaskCategoryReading    = "reading"
	TaskCategoryExercise   = "exercise"
	TaskCategoryMeditation = "meditation"
	TaskCategoryCreative   = "creative"
	TaskCategorySocial     = "social"
	TaskCategoryCustom     = "custom"
)
