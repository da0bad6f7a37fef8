package domain

import (
	"errors"
	"time"
)

// ErrQueueFull reports an enqueue rejected because the queue is at capacity.
// Producers treat it as a drop, never as backpressure.
var ErrQueueFull = errors.New("enrichment queue is full")

// EnrichmentTask is one unit of pipeline work: fetch the message, enrich it,
// persist the record. Webhook-produced tasks carry only the subscription id;
// batch-produced tasks already know the owner and set UserID directly.
type EnrichmentTask struct {
	MessageID      string
	SubscriptionID string
	ChangeType     string
	ClientState    string
	UserID         string
	AttemptCount   int
	EnqueuedAt     time.Time
}

// FailedTask is the dead-letter record written when a task exhausts its
// retry budget. Kept for operator inspection and manual replay.
type FailedTask struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	MessageID      string    `json:"message_id" gorm:"index"`
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id" gorm:"index"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error" gorm:"type:text"`
	FailedAt       time.Time `json:"failed_at"`
}

func (FailedTask) TableName() string {
	return "failed_tasks"
}
