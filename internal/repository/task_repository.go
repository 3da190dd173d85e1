package repository

import (
	"time"

	"github.com/mindfultime/mindfultime-server/internal/models"
)

// TaskRepository handles mindful-task catalog and completion records.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task in the catalog.
func (r *TaskRepository) Create(task *models.MindfulTask) error {
	return r.db.Create(task).Error
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(id uint) (*models.MindfulTask, error) {
	var task models.MindfulTask
	err := r.db.First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetBySlug retrieves a task by its slug.
func (r *TaskRepository) GetBySlug(slug string) (*models.MindfulTask, error) {
	var task models.MindfulTask
	err := r.db.Where("slug = ?", slug).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetAll retrieves the full task catalog.
func (r *TaskRepository) GetAll() ([]models.MindfulTask, error) {
	var tasks []models.MindfulTask
	err := r.db.Order("category ASC, time_reward ASC").Find(&tasks).Error
	return tasks, err
}

// GetByCategory retrieves catalog tasks in a category.
func (r *TaskRepository) GetByCategory(category string) ([]models.MindfulTask, error) {
	var tasks []models.MindfulTask
	err := r.db.
		Where("category = ?", category).
		Order("time_reward ASC").
		Find(&tasks).Error
	return tasks, err
}

// Count returns the number of catalog tasks.
func (r *TaskRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.MindfulTask{}).Count(&count).Error
	return count, err
}

// AddCompletion records a task completion.
func (r *TaskRepository) AddCompletion(completion *models.CompletedTask) error {
	return r.db.Create(completion).Error
}

// UpdateCompletion saves changes to a completion record. Used by the
// completion pipeline to settle the final credited amount once the streak
// bonus is known.
func (r *TaskRepository) UpdateCompletion(completion *models.CompletedTask) error {
	return r.db.Save(completion).Error
}

// GetCompletions retrieves all completions for a user, most recent first.
func (r *TaskRepository) GetCompletions(userID uint) ([]models.CompletedTask, error) {
	var completions []models.CompletedTask
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Task").
		Order("completed_at DESC").
		Find(&completions).Error
	return completions, err
}

// CountCompletionsInRange counts a user's completions within [start, end).
func (r *TaskRepository) CountCompletionsInRange(userID uint, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.CompletedTask{}).
		Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, start, end).
		Count(&count).Error
	return count, err
}

// CountCompletionsByCategory counts a user's completions of tasks in the
// given category. Used by category_master achievements.
func (r *TaskRepository) CountCompletionsByCategory(userID uint, category string) (int64, error) {
	var count int64
	err := r.db.Model(&models.CompletedTask{}).
		Joins("JOIN mindful_tasks ON mindful_tasks.id = completed_tasks.task_id").
		Where("completed_tasks.user_id = ? AND mindful_tasks.category = ?", userID, category).
		Count(&count).Error
	return count, err
}
