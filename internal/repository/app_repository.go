package repository

import (
	"github.com/mindfultime/mindfultime-server/internal/models"
)

// AppRepository handles monitored-app database operations.
type AppRepository struct {
	db *DB
}

// NewAppRepository creates a new app repository.
func NewAppRepository(db *DB) *AppRepository {
	return &AppRepository{db: db}
}

// Create creates a new monitored app.
func (r *AppRepository) Create(app *models.MonitoredApp) error {
	return r.db.Create(app).Error
}

// GetByID retrieves a monitored app by its ID.
func (r *AppRepository) GetByID(id uint) (*models.MonitoredApp, error) {
	var app models.MonitoredApp
	err := r.db.First(&app, id).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// GetByUser retrieves all monitored apps for a user.
func (r *AppRepository) GetByUser(userID uint) ([]models.MonitoredApp, error) {
	var apps []models.MonitoredApp
	err := r.db.
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&apps).Error
	return apps, err
}

// GetBlocked retrieves the currently blocked apps for a user.
func (r *AppRepository) GetBlocked(userID uint) ([]models.MonitoredApp, error) {
	var apps []models.MonitoredApp
	err := r.db.
		Where("user_id = ? AND is_blocked = ?", userID, true).
		Find(&apps).Error
	return apps, err
}

// Update saves changes to a monitored app.
func (r *AppRepository) Update(app *models.MonitoredApp) error {
	return r.db.Save(app).Error
}

// UpdateFields applies a partial update to a monitored app.
func (r *AppRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.MonitoredApp{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete deletes a monitored app.
func (r *AppRepository) Delete(id uint) error {
	return r.db.Delete(&models.MonitoredApp{}, id).Error
}

// ResetDailyUsage zeroes used time and clears blocks for all of a user's
// apps. Run by the midnight rollover job.
func (r *AppRepository) ResetDailyUsage(userID uint) error {
	return r.db.Model(&models.MonitoredApp{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"used_time":  0,
			"is_blocked": false,
		}).Error
}

// CountBlocked returns the number of blocked apps for a user.
func (r *AppRepository) CountBlocked(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.MonitoredApp{}).
		Where("user_id = ? AND is_blocked = ?", userID, true).
		Count(&count).Error
	return count, err
}
