package domain

import "time"

// SuggestedAction is one recommendation from the enrichment engine, kept on
// the record exactly as produced.
type SuggestedAction struct {
	Action    string     `json:"action"`
	Type      string     `json:"type"`
	Priority  string     `json:"priority"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Reasoning string     `json:"reasoning,omitempty"`
}

// EmailRecord is one processed inbox message together with its AI
// enrichment. MessageID carries the Graph message id; its unique index is
// what makes reprocessing the same notification a no-op.
type EmailRecord struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index;not null"`

	MessageID      string   `json:"message_id" gorm:"uniqueIndex;not null"`
	ConversationID string   `json:"conversation_id,omitempty" gorm:"index"`
	Subject        string   `json:"subject" gorm:"type:text"`
	SenderName     string   `json:"sender_name"`
	SenderAddress  string   `json:"sender_address" gorm:"index"`
	Recipients     []string `json:"recipients" gorm:"serializer:json"`

	BodyText string `json:"body_text,omitempty" gorm:"type:text"`
	BodyHTML string `json:"body_html,omitempty" gorm:"type:text"`

	ReceivedAt     time.Time `json:"received_at" gorm:"index;not null"`
	IsRead         bool      `json:"is_read"`
	HasAttachments bool      `json:"has_attachments"`
	Importance     string    `json:"importance"`

	Summary          string            `json:"summary" gorm:"type:text"`
	KeyPoints        []string          `json:"key_points" gorm:"serializer:json"`
	SuggestedActions []SuggestedAction `json:"suggested_actions" gorm:"serializer:json"`
	Sentiment        string            `json:"sentiment,omitempty"`
	UrgencyScore     float64           `json:"urgency_score"`
	Category         string            `json:"category,omitempty"`

	AIModelUsed           string    `json:"ai_model_used"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	ProcessedAt           time.Time `json:"processed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EmailRecord) TableName() string {
	return "emails"
}
