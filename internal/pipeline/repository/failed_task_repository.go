package repository

import (
	"time"

	"mailsense-backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FailedTaskRepository stores tasks that exhausted their retries so they
// can be inspected and reprocessed by hand.
type FailedTaskRepository interface {
	Save(task *domain.FailedTask) error
	List(limit int) ([]domain.FailedTask, error)
	Count() (int64, error)
}

type failedTaskRepository struct {
	db *gorm.DB
}

func NewFailedTaskRepository(db *gorm.DB) FailedTaskRepository {
	return &failedTaskRepository{db: db}
}

func (r *failedTaskRepository) Save(task *domain.FailedTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.FailedAt.IsZero() {
		task.FailedAt = time.Now()
	}
	return r.db.Create(task).Error
}

func (r *failedTaskRepository) List(limit int) ([]domain.FailedTask, error) {
	if limit <= 0 {
		limit = 50
	}
	var tasks []domain.FailedTask
	err := r.db.Order("failed_at DESC").Limit(limit).Find(&tasks).Error
	return tasks, err
}

func (r *failedTaskRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.FailedTask{}).Count(&count).Error
	return count, err
}
