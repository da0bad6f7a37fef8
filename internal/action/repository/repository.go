package repository

import (
	"time"

	"mailsense-backend/internal/action/domain"
)

// ActionRepository defines the interface for action item data access
type ActionRepository interface {
	// Create creates a new action item
	Create(item *domain.ActionItem) error

	// CreateBatch creates several action items in one transaction
	CreateBatch(items []*domain.ActionItem) error

	// FindByID finds an action item by its ID
	FindByID(id string) (*domain.ActionItem, error)

	// FindByUserID finds a user's action items with an optional status filter
	FindByUserID(userID string, status *domain.ActionStatus, limit, offset int) ([]*domain.ActionItem, int64, error)

	// Update updates an existing action item
	Update(item *domain.ActionItem) error

	// Delete deletes an action item by ID
	Delete(id string) error

	// FindDueReminders finds pending items whose due date falls before the
	// deadline and that have not been notified yet
	FindDueReminders(deadline time.Time) ([]*domain.ActionItem, error)

	// MarkReminderSent marks an item's reminder as sent
	MarkReminderSent(id string) error
}
