package usecase

import (
	"context"
	"time"

	authdomain "mailsense-backend/internal/auth/domain"
	"mailsense-backend/pkg/graph"
)

// States reported by Status. token_expired means the stored Microsoft
// credentials no longer work; not_found_in_graph means the local record
// points at a subscription Graph has already dropped.
const (
	StateNone            = "none"
	StateActive          = "active"
	StateTokenExpired    = "token_expired"
	StateNotFoundInGraph = "not_found_in_graph"
)

// Status describes a user's inbox subscription as the API reports it.
type Status struct {
	State          string     `json:"state"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	Resource       string     `json:"resource,omitempty"`
	ChangeType     string     `json:"change_type,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// SubscriptionAPI is the slice of the Graph client the lifecycle needs.
type SubscriptionAPI interface {
	CreateSubscription(ctx context.Context, creds graph.Credentials, notificationURL, clientState string, lifetime time.Duration) (*graph.Subscription, error)
	RenewSubscription(ctx context.Context, creds graph.Credentials, subscriptionID string, lifetime time.Duration) (*graph.Subscription, error)
	DeleteSubscription(ctx context.Context, creds graph.Credentials, subscriptionID string) error
	GetSubscription(ctx context.Context, creds graph.Credentials, subscriptionID string) (*graph.Subscription, error)
}

// CredentialSource yields decrypted Graph credentials for a user.
type CredentialSource interface {
	CredentialsFor(user *authdomain.User) (*graph.Credentials, error)
}

// UserStore persists subscription state changes onto the user row.
type UserStore interface {
	Update(user *authdomain.User) error
}

type SubscriptionUsecase interface {
	Create(ctx context.Context, user *authdomain.User) (*Status, error)
	Renew(ctx context.Context, user *authdomain.User) (*Status, error)
	Delete(ctx context.Context, user *authdomain.User) error
	Status(ctx context.Context, user *authdomain.User) (*Status, error)
}
