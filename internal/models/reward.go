package models

import (
	"time"
)

// TransactionType constants for RewardTransaction.Type.
const (
	TransactionEarned = "earned"
	TransactionSpent  = "spent"
	TransactionBonus  = "bonus"
)

// RewardTransaction is one entry of the append-only reward ledger.
// Rows are immutable once created.
type RewardTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Type        string    `gorm:"size:20;not null;index" json:"type"` // 'earned', 'spent', 'bonus'
	Amount      int       `gorm:"not null" json:"amount"`             // minutes, >= 0
	Reason      string    `gorm:"type:text" json:"reason"`
	TaskID      *uint     `gorm:"index" json:"task_id,omitempty"`
	AppID       *uint     `gorm:"index" json:"app_id,omitempty"`
	Description string    `gorm:"type:text" json:"description"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName specifies the table name for RewardTransaction model.
func (RewardTransaction) TableName() string {
	return "reward_transactions"
}

// RewardAllocation is an open allocation: minutes granted to an app but
// not yet consumed by real usage. Rows are reduced or deleted when a spend
// draws on the pending pool or when the external usage tracker consumes
// them.
type RewardAllocation struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	UserID      uint         `gorm:"not null;index" json:"user_id"`
	User        User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	AppID       uint         `gorm:"not null;index" json:"app_id"`
	App         MonitoredApp `gorm:"foreignKey:AppID" json:"app,omitempty"`
	Minutes     int          `gorm:"not null" json:"minutes"`
	AllocatedAt time.Time    `gorm:"not null" json:"allocated_at"`
}

// TableName specifies the table name for RewardAllocation model.
func (RewardAllocation) TableName() string {
	return "reward_allocations"
}

// RewardBalance is derived from the transaction log and open allocations.
// It is never stored; every read recomputes it.
type RewardBalance struct {
	TotalEarned       int `json:"total_earned"`       // sum of 'earned' + 'bonus'
	Spent             int `json:"spent"`              // sum of 'spent'
	PendingAllocation int `json:"pending_allocation"` // sum of open allocation minutes
	Available         int `json:"available"`          // max(0, total_earned - spent - pending)
}
