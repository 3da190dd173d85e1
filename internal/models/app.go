package models

import (
	"time"
)

// MonitoredApp represents a third-party app whose daily usage is limited.
// UsedTime is reported by the platform usage-tracking collaborator; the
// core only reads it.
type MonitoredApp struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	PackageName string    `gorm:"not null;size:255;index" json:"package_name"`
	Category    string    `gorm:"size:50" json:"category"` // 'social_media', 'entertainment', 'games', 'productivity', 'other'
	DailyLimit  int       `gorm:"default:0" json:"daily_limit"` // minutes
	UsedTime    int       `gorm:"default:0" json:"used_time"`   // minutes
	IsBlocked   bool      `gorm:"default:false" json:"is_blocked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for MonitoredApp model.
func (MonitoredApp) TableName() string {
	return "monitored_apps"
}

// RemainingTime returns the minutes left before the app hits its daily limit.
func (a *MonitoredApp) RemainingTime() int {
	remaining := a.DailyLimit - a.UsedTime
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NearLimit reports whether the app has consumed at least 90% of its
// daily limit.
func (a *MonitoredApp) NearLimit() bool {
	return float64(a.UsedTime) >= 0.9*float64(a.DailyLimit)
}

// AppCategory constants.
const (
	AppCategorySocialMedia   = "social_media"
	AppCategoryEntertainment = "entertainment"
	AppCategoryGames         = "games"
	AppCategoryProductivity  = "productivity"
	AppCategoryOther         = "other"
)
