package usecase

import (
	"errors"

	"mailsense-backend/internal/action/domain"
	emaildomain "mailsense-backend/internal/email/domain"
)

var (
	// ErrActionNotFound is returned when the item does not exist.
	ErrActionNotFound = errors.New("action item not found")
	// ErrActionForbidden is returned when the item belongs to another user.
	ErrActionForbidden = errors.New("action item belongs to another user")
	// ErrInvalidStatus is returned for status values outside the known set.
	ErrInvalidStatus = errors.New("invalid action status")
)

// ActionUsecase defines the interface for action item business logic
type ActionUsecase interface {
	// ListActions retrieves a user's action items with an optional status filter
	ListActions(userID, status string, limit, offset int) ([]*domain.ActionItem, int64, error)

	// GetAction retrieves one item with an ownership check
	GetAction(userID, actionID string) (*domain.ActionItem, error)

	// UpdateStatus moves an item through its workflow
	UpdateStatus(userID, actionID, status string) (*domain.ActionItem, error)

	// CreateFromSuggestions turns AI-suggested actions for a processed email
	// into trackable action items
	CreateFromSuggestions(userID, emailID, messageID string, suggestions []emaildomain.SuggestedAction) ([]*domain.ActionItem, error)
}
