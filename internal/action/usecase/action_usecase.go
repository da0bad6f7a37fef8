package usecase

import (
	"log"
	"time"

	"mailsense-backend/internal/action/domain"
	"mailsense-backend/internal/action/repository"
	emaildomain "mailsense-backend/internal/email/domain"

	"github.com/google/uuid"
)

// actionUsecase implements ActionUsecase interface
type actionUsecase struct {
	actionRepo repository.ActionRepository
}

// NewActionUsecase creates a new instance of actionUsecase
func NewActionUsecase(actionRepo repository.ActionRepository) ActionUsecase {
	return &actionUsecase{
		actionRepo: actionRepo,
	}
}

func (u *actionUsecase) ListActions(userID, status string, limit, offset int) ([]*domain.ActionItem, int64, error) {
	var statusFilter *domain.ActionStatus
	if status != "" {
		parsed, ok := domain.ParseStatus(status)
		if !ok {
			return nil, 0, ErrInvalidStatus
		}
		statusFilter = &parsed
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return u.actionRepo.FindByUserID(userID, statusFilter, limit, offset)
}

func (u *actionUsecase) GetAction(userID, actionID string) (*domain.ActionItem, error) {
	item, err := u.actionRepo.FindByID(actionID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrActionNotFound
	}
	if item.UserID != userID {
		return nil, ErrActionForbidden
	}
	return item, nil
}

func (u *actionUsecase) UpdateStatus(userID, actionID, status string) (*domain.ActionItem, error) {
	newStatus, ok := domain.ParseStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}

	item, err := u.GetAction(userID, actionID)
	if err != nil {
		return nil, err
	}

	item.Status = newStatus
	if newStatus == domain.ActionStatusCompleted {
		now := time.Now()
		item.CompletedAt = &now
	} else {
		// Reopening clears the completion timestamp.
		item.CompletedAt = nil
	}

	if err := u.actionRepo.Update(item); err != nil {
		return nil, err
	}

	return item, nil
}

func (u *actionUsecase) CreateFromSuggestions(userID, emailID, messageID string, suggestions []emaildomain.SuggestedAction) ([]*domain.ActionItem, error) {
	if len(suggestions) == 0 {
		return nil, nil
	}

	items := make([]*domain.ActionItem, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Action == "" {
			continue
		}
		items = append(items, &domain.ActionItem{
			ID:                   uuid.New().String(),
			UserID:               userID,
			EmailID:              emailID,
			MessageID:            messageID,
			Title:                s.Action,
			ActionType:           parseActionType(s.Type),
			Priority:             parsePriority(s.Priority),
			Status:               domain.ActionStatusPending,
			DueDate:              s.DueDate,
			RecommendationReason: s.Reasoning,
		})
	}
	if len(items) == 0 {
		return nil, nil
	}

	if err := u.actionRepo.CreateBatch(items); err != nil {
		return nil, err
	}

	log.Printf("[Actions] Created %d action items for email %s (user %s)", len(items), messageID, userID)
	return items, nil
}

func parsePriority(p string) domain.Priority {
	switch p {
	case "high":
		return domain.PriorityHigh
	case "low":
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}

func parseActionType(t string) domain.ActionType {
	switch t {
	case "reply":
		return domain.ActionTypeReply
	case "delegate":
		return domain.ActionTypeDelegate
	case "schedule":
		return domain.ActionTypeSchedule
	default:
		return domain.ActionTypeReview
	}
}
