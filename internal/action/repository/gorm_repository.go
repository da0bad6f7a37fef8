package repository

import (
	"errors"
	"time"

	"mailsense-backend/internal/action/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormActionRepository implements ActionRepository using GORM
type gormActionRepository struct {
	db *gorm.DB
}

// NewGormActionRepository creates a new GORM-based ActionRepository
func NewGormActionRepository(db *gorm.DB) ActionRepository {
	return &gormActionRepository{db: db}
}

func (r *gormActionRepository) Create(item *domain.ActionItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	return r.db.Create(item).Error
}

func (r *gormActionRepository) CreateBatch(items []*domain.ActionItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.CreatedAt = now
		item.UpdatedAt = now
	}
	return r.db.Create(items).Error
}

func (r *gormActionRepository) FindByID(id string) (*domain.ActionItem, error) {
	var item domain.ActionItem
	err := r.db.Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *gormActionRepository) FindByUserID(userID string, status *domain.ActionStatus, limit, offset int) ([]*domain.ActionItem, int64, error) {
	var items []*domain.ActionItem
	var total int64

	query := r.db.Model(&domain.ActionItem{}).Where("user_id = ?", userID)

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Items with a due date come first, soonest deadline on top.
	err := query.Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at DESC").
		Limit(limit).Offset(offset).Find(&items).Error

	return items, total, err
}

func (r *gormActionRepository) Update(item *domain.ActionItem) error {
	item.UpdatedAt = time.Now()
	return r.db.Save(item).Error
}

func (r *gormActionRepository) Delete(id string) error {
	return r.db.Delete(&domain.ActionItem{}, "id = ?", id).Error
}

func (r *gormActionRepository) FindDueReminders(deadline time.Time) ([]*domain.ActionItem, error) {
	var items []*domain.ActionItem
	err := r.db.Where("due_date IS NOT NULL AND due_date <= ? AND reminder_sent = ? AND status = ?",
		deadline, false, domain.ActionStatusPending).Find(&items).Error
	return items, err
}

func (r *gormActionRepository) MarkReminderSent(id string) error {
	return r.db.Model(&domain.ActionItem{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"reminder_sent": true,
			"updated_at":    time.Now(),
		}).Error
}
