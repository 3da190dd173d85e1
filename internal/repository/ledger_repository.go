package repository

import (
	"gorm.io/gorm"

	"github.com/mindfultime/mindfultime-server/internal/models"
)

// LedgerRepository handles the append-only reward transaction log and the
// open allocation pool.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append adds a transaction to the ledger. Rows are never updated or
// deleted afterwards.
func (r *LedgerRepository) Append(txn *models.RewardTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactions retrieves a user's transactions, most recent first.
// A limit of 0 returns everything.
func (r *LedgerRepository) GetTransactions(userID uint, limit int) ([]models.RewardTransaction, error) {
	var txns []models.RewardTransaction
	q := r.db.
		Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&txns).Error
	return txns, err
}

// GetTransactionsByType retrieves a user's transactions of one type,
// most recent first.
func (r *LedgerRepository) GetTransactionsByType(userID uint, txnType string) ([]models.RewardTransaction, error) {
	var txns []models.RewardTransaction
	err := r.db.
		Where("user_id = ? AND type = ?", userID, txnType).
		Order("timestamp DESC, id DESC").
		Find(&txns).Error
	return txns, err
}

// GetBalance recomputes the balance from the transaction log and the open
// allocation pool. Nothing is cached here; the sums are the source of truth.
func (r *LedgerRepository) GetBalance(userID uint) (*models.RewardBalance, error) {
	var totalEarned int64
	err := r.db.Model(&models.RewardTransaction{}).
		Where("user_id = ? AND type IN ?", userID, []string{models.TransactionEarned, models.TransactionBonus}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalEarned).Error
	if err != nil {
		return nil, err
	}

	var spent int64
	err = r.db.Model(&models.RewardTransaction{}).
		Where("user_id = ? AND type = ?", userID, models.TransactionSpent).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&spent).Error
	if err != nil {
		return nil, err
	}

	var pending int64
	err = r.db.Model(&models.RewardAllocation{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(minutes), 0)").
		Scan(&pending).Error
	if err != nil {
		return nil, err
	}

	available := totalEarned - spent - pending
	if available < 0 {
		available = 0
	}

	return &models.RewardBalance{
		TotalEarned:       int(totalEarned),
		Spent:             int(spent),
		PendingAllocation: int(pending),
		Available:         int(available),
	}, nil
}

// CreateAllocation records an open allocation: minutes granted to an app
// ahead of consumption.
func (r *LedgerRepository) CreateAllocation(alloc *models.RewardAllocation) error {
	return r.db.Create(alloc).Error
}

// GetAllocations retrieves a user's open allocations, oldest first.
func (r *LedgerRepository) GetAllocations(userID uint) ([]models.RewardAllocation, error) {
	var allocs []models.RewardAllocation
	err := r.db.
		Where("user_id = ?", userID).
		Order("allocated_at ASC, id ASC").
		Find(&allocs).Error
	return allocs, err
}

// ReduceAllocations consumes up to minutes from the open allocation pool,
// oldest rows first. Fully consumed rows are deleted, the last row touched
// is shrunk. Consuming more than the pool holds just empties it: the pool
// is floored at zero. Returns the number of minutes actually consumed.
func (r *LedgerRepository) ReduceAllocations(userID uint, minutes int) (int, error) {
	if minutes <= 0 {
		return 0, nil
	}

	consumed := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var allocs []models.RewardAllocation
		if err := tx.
			Where("user_id = ?", userID).
			Order("allocated_at ASC, id ASC").
			Find(&allocs).Error; err != nil {
			return err
		}

		remaining := minutes
		for i := range allocs {
			if remaining == 0 {
				break
			}
			if allocs[i].Minutes <= remaining {
				remaining -= allocs[i].Minutes
				consumed += allocs[i].Minutes
				if err := tx.Delete(&models.RewardAllocation{}, allocs[i].ID).Error; err != nil {
					return err
				}
			} else {
				allocs[i].Minutes -= remaining
				consumed += remaining
				remaining = 0
				if err := tx.Save(&allocs[i]).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return consumed, nil
}

// DeleteAllocationsByApp removes open allocations for one app. The midnight
// rollover uses this to expire grants that were never consumed.
func (r *LedgerRepository) DeleteAllocationsByApp(userID, appID uint) error {
	return r.db.
		Where("user_id = ? AND app_id = ?", userID, appID).
		Delete(&models.RewardAllocation{}).Error
}
