package domain

import "time"

// Priority represents how urgent an action item is
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ActionType classifies the kind of follow-up an email calls for
type ActionType string

const (
	ActionTypeReply    ActionType = "reply"
	ActionTypeDelegate ActionType = "delegate"
	ActionTypeSchedule ActionType = "schedule"
	ActionTypeReview   ActionType = "review"
)

// ActionStatus represents the current state of an action item
type ActionStatus string

const (
	ActionStatusPending    ActionStatus = "pending"
	ActionStatusInProgress ActionStatus = "in_progress"
	ActionStatusCompleted  ActionStatus = "completed"
	ActionStatusCancelled  ActionStatus = "cancelled"
)

// ParseStatus validates a status string coming off the wire.
func ParseStatus(s string) (ActionStatus, bool) {
	switch ActionStatus(s) {
	case ActionStatusPending, ActionStatusInProgress, ActionStatusCompleted, ActionStatusCancelled:
		return ActionStatus(s), true
	}
	return "", false
}

// ActionItem is a follow-up extracted from a processed email
type ActionItem struct {
	ID                   string       `json:"id" gorm:"primaryKey"`
	UserID               string       `json:"user_id" gorm:"index;not null"`
	EmailID              string       `json:"email_id,omitempty" gorm:"index"` // Link to the stored email record
	MessageID            string       `json:"message_id,omitempty" gorm:"index"`
	Title                string       `json:"title" gorm:"not null"`
	Description          string       `json:"description,omitempty"`
	ActionType           ActionType   `json:"action_type" gorm:"default:review"`
	Priority             Priority     `json:"priority" gorm:"default:medium"`
	Status               ActionStatus `json:"status" gorm:"default:pending;index"`
	DueDate              *time.Time   `json:"due_date,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	ReminderSent         bool         `json:"reminder_sent" gorm:"default:false"` // Track if reminder was sent
	ConfidenceScore      float64      `json:"confidence_score"`
	RecommendationReason string       `json:"recommendation_reason,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

func (ActionItem) TableName() string {
	return "action_items"
}
