package repository

import (
	"time"

	"github.com/mindfultime/mindfultime-server/internal/models"
)

// AchievementRepository handles achievement catalog and unlock records.
type AchievementRepository struct {
	db *DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Create adds an achievement to the catalog.
func (r *AchievementRepository) Create(achievement *models.Achievement) error {
	return r.db.Create(achievement).Error
}

// GetByID retrieves an achievement by its ID.
func (r *AchievementRepository) GetByID(id uint) (*models.Achievement, error) {
	var achievement models.Achievement
	err := r.db.First(&achievement, id).Error
	if err != nil {
		return nil, err
	}
	return &achievement, nil
}

// GetBySlug retrieves an achievement by its slug.
func (r *AchievementRepository) GetBySlug(slug string) (*models.Achievement, error) {
	var achievement models.Achievement
	err := r.db.Where("slug = ?", slug).First(&achievement).Error
	if err != nil {
		return nil, err
	}
	return &achievement, nil
}

// GetAll retrieves the full achievement catalog.
func (r *AchievementRepository) GetAll() ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := r.db.Order("type ASC, requirement ASC").Find(&achievements).Error
	return achievements, err
}

// Count returns the number of catalog achievements.
func (r *AchievementRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Achievement{}).Count(&count).Error
	return count, err
}

// Unlock records an achievement unlock for a user.
// Idempotent: unlocking an already-unlocked achievement is a no-op.
func (r *AchievementRepository) Unlock(userID, achievementID uint) error {
	unlocked, err := r.IsUnlocked(userID, achievementID)
	if err != nil {
		return err
	}
	if unlocked {
		return nil
	}

	record := &models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now(),
	}
	return r.db.Create(record).Error
}

// IsUnlocked checks whether a user has unlocked an achievement.
func (r *AchievementRepository) IsUnlocked(userID, achievementID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUnlocked retrieves a user's unlock records with achievement details
// preloaded, most recent first.
func (r *AchievementRepository) GetUnlocked(userID uint) ([]models.UserAchievement, error) {
	var records []models.UserAchievement
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Achievement").
		Order("unlocked_at DESC").
		Find(&records).Error
	return records, err
}

// CountUnlocked returns the number of achievements a user has unlocked.
func (r *AchievementRepository) CountUnlocked(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
