package usecase

import (
	"context"

	authdomain "mailsense-backend/internal/auth/domain"
	emaildomain "mailsense-backend/internal/email/domain"
	"mailsense-backend/internal/email/dto"
	pipelinedomain "mailsense-backend/internal/pipeline/domain"
	"mailsense-backend/pkg/graph"
)

// EmailUsecase defines the interface for email use cases
type EmailUsecase interface {
	List(userID string, skip, limit int, unreadOnly bool, query string) (*dto.EmailsResponse, error)
	Get(userID, id string) (*emaildomain.EmailRecord, error)
	SemanticSearch(ctx context.Context, userID, query string, limit int) (*dto.SemanticSearchResponse, error)
	BatchReprocess(ctx context.Context, user *authdomain.User) (*dto.ProcessBatchResponse, error)
	Release()
}

// TaskEnqueuer hands enrichment work to the background pipeline.
type TaskEnqueuer interface {
	Enqueue(task pipelinedomain.EnrichmentTask) error
}

// MailboxReader lists unread messages in a linked mailbox.
type MailboxReader interface {
	ListUnread(ctx context.Context, creds graph.Credentials, maxCount int) ([]graph.Message, error)
}

// CredentialSource resolves Graph credentials for a linked user.
type CredentialSource interface {
	CredentialsFor(user *authdomain.User) (*graph.Credentials, error)
}

// VectorIndex answers similarity queries over stored emails. Results come
// back as message ids with their distances, closest first.
type VectorIndex interface {
	SemanticSearch(ctx context.Context, userID, query string, limit int) ([]string, []float64, error)
}
