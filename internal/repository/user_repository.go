package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mindfultime/mindfultime-server/internal/models"
)

// UserRepository handles user and user-stats database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user together with its zero-valued stats row.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserStats{UserID: user.ID}).Error
	})
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List retrieves all users.
func (r *UserRepository) List() ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at ASC").Find(&users).Error
	return users, err
}

// Delete deletes a user; dependent rows cascade.
func (r *UserRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// GetStats retrieves the stats row for a user, creating a zero-valued one
// if it does not exist yet.
func (r *UserRepository) GetStats(userID uint) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.db.Where("user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.UserStats{UserID: userID}
		if createErr := r.db.Create(&stats).Error; createErr != nil {
			return nil, createErr
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// UpdateStats applies a partial update to a user's stats row inside a
// single transaction. The read-modify-write happens atomically so two
// concurrent completions cannot lose an update.
func (r *UserRepository) UpdateStats(userID uint, update func(*models.UserStats)) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&stats).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			stats = models.UserStats{UserID: userID}
			if err := tx.Create(&stats).Error; err != nil {
				return err
			}
		}
		update(&stats)
		stats.UpdatedAt = time.Now()
		return tx.Save(&stats).Error
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
