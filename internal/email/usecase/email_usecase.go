package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	authdomain "mailsense-backend/internal/auth/domain"
	emaildomain "mailsense-backend/internal/email/domain"
	"mailsense-backend/internal/email/dto"
	"mailsense-backend/internal/email/repository"
	pipelinedomain "mailsense-backend/internal/pipeline/domain"
	"mailsense-backend/pkg/config"
	"mailsense-backend/pkg/fuzzy"

	"github.com/panjf2000/ants/v2"
)

// ErrSemanticSearchUnavailable is returned when no vector index is wired in.
var ErrSemanticSearchUnavailable = errors.New("semantic search is not configured")

const (
	defaultListLimit     = 20
	maxListLimit         = 100
	defaultSemanticLimit = 10
	maxSemanticLimit     = 50

	// fuzzySearchWindow caps how many recent emails a text query scans.
	fuzzySearchWindow = 500

	batchPoolSize = 8
)

// emailUsecase implements EmailUsecase interface
type emailUsecase struct {
	emailRepo repository.EmailRepository
	creds     CredentialSource
	mailbox   MailboxReader
	vector    VectorIndex
	tasks     TaskEnqueuer
	config    *config.Config
	batchPool *ants.Pool
}

// NewEmailUsecase creates a new instance of emailUsecase. vector may be nil
// when no vector store is configured; semantic search then reports itself
// unavailable instead of failing at startup.
func NewEmailUsecase(emailRepo repository.EmailRepository, creds CredentialSource, mailbox MailboxReader, vector VectorIndex, tasks TaskEnqueuer, cfg *config.Config) (EmailUsecase, error) {
	pool, err := ants.NewPool(batchPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch worker pool: %w", err)
	}
	return &emailUsecase{
		emailRepo: emailRepo,
		creds:     creds,
		mailbox:   mailbox,
		vector:    vector,
		tasks:     tasks,
		config:    cfg,
		batchPool: pool,
	}, nil
}

// Release frees the batch worker pool. The usecase should not be used
// after calling Release.
func (u *emailUsecase) Release() {
	if u.batchPool != nil {
		u.batchPool.Release()
	}
}

func (u *emailUsecase) List(userID string, skip, limit int, unreadOnly bool, query string) (*dto.EmailsResponse, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query = strings.TrimSpace(query)
	if query != "" {
		return u.listFuzzy(userID, skip, limit, unreadOnly, query)
	}

	records, total, err := u.emailRepo.List(userID, repository.ListFilter{
		Skip:       skip,
		Limit:      limit,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		return nil, err
	}

	return &dto.EmailsResponse{
		Emails: records,
		Total:  total,
		Skip:   skip,
		Limit:  limit,
	}, nil
}

// listFuzzy ranks a window of recent emails against the query in memory.
// Typo-tolerant matching does not translate to SQL, so the scan is bounded
// by fuzzySearchWindow instead of pushed to the database.
func (u *emailUsecase) listFuzzy(userID string, skip, limit int, unreadOnly bool, query string) (*dto.EmailsResponse, error) {
	candidates, err := u.emailRepo.ListRecent(userID, fuzzySearchWindow)
	if err != nil {
		return nil, err
	}

	type scoredRecord struct {
		record emaildomain.EmailRecord
		score  float64
	}

	matched := make([]scoredRecord, 0, limit*2)
	for _, record := range candidates {
		if unreadOnly && record.IsRead {
			continue
		}
		if !fuzzy.MatchEmail(query, record.Subject, record.SenderAddress, record.SenderName, record.BodyText) {
			continue
		}
		score := fuzzy.RelevanceScore(query, record.Subject, record.SenderAddress, record.SenderName)
		matched = append(matched, scoredRecord{record: record, score: score})
	}

	// Stable sort keeps newest-first order between equal scores; the
	// candidate window is already ordered by received time.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})

	total := int64(len(matched))
	if skip >= len(matched) {
		matched = nil
	} else {
		matched = matched[skip:]
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	emails := make([]emaildomain.EmailRecord, 0, len(matched))
	for _, m := range matched {
		emails = append(emails, m.record)
	}

	return &dto.EmailsResponse{
		Emails: emails,
		Total:  total,
		Skip:   skip,
		Limit:  limit,
	}, nil
}

func (u *emailUsecase) Get(userID, id string) (*emaildomain.EmailRecord, error) {
	return u.emailRepo.GetByID(userID, id)
}

func (u *emailUsecase) SemanticSearch(ctx context.Context, userID, query string, limit int) (*dto.SemanticSearchResponse, error) {
	if u.vector == nil {
		return nil, ErrSemanticSearchUnavailable
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return &dto.SemanticSearchResponse{Query: query, Results: []dto.SemanticResult{}}, nil
	}
	if limit <= 0 {
		limit = defaultSemanticLimit
	}
	if limit > maxSemanticLimit {
		limit = maxSemanticLimit
	}

	messageIDs, distances, err := u.vector.SemanticSearch(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	response := &dto.SemanticSearchResponse{Query: query, Results: []dto.SemanticResult{}}
	if len(messageIDs) == 0 {
		return response, nil
	}

	records, err := u.emailRepo.GetByMessageIDs(userID, messageIDs)
	if err != nil {
		return nil, err
	}
	byMessageID := make(map[string]emaildomain.EmailRecord, len(records))
	for _, record := range records {
		byMessageID[record.MessageID] = record
	}

	// Preserve the index ordering. Ids without a stored record are skipped,
	// the vector store can briefly run ahead of the database.
	for i, id := range messageIDs {
		record, ok := byMessageID[id]
		if !ok {
			continue
		}
		similarity := 0.0
		if i < len(distances) {
			similarity = 1.0 - distances[i]
		}
		response.Results = append(response.Results, dto.SemanticResult{
			Email:      record,
			Similarity: similarity,
		})
	}

	return response, nil
}

func (u *emailUsecase) BatchReprocess(ctx context.Context, user *authdomain.User) (*dto.ProcessBatchResponse, error) {
	creds, err := u.creds.CredentialsFor(user)
	if err != nil {
		return nil, err
	}

	messages, err := u.mailbox.ListUnread(ctx, *creds, u.config.MaxEmailsPerBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread emails: %w", err)
	}

	var (
		queued  int64
		skipped int64
		wg      sync.WaitGroup
	)
	for _, msg := range messages {
		messageID := msg.ID
		if messageID == "" {
			atomic.AddInt64(&skipped, 1)
			continue
		}

		wg.Add(1)
		submitErr := u.batchPool.Submit(func() {
			defer wg.Done()

			exists, err := u.emailRepo.ExistsByMessageID(messageID)
			if err != nil {
				log.Printf("[Batch] Lookup failed for message %s: %v", messageID, err)
				atomic.AddInt64(&skipped, 1)
				return
			}
			if exists {
				atomic.AddInt64(&skipped, 1)
				return
			}

			task := pipelinedomain.EnrichmentTask{
				MessageID:      messageID,
				UserID:         user.ID,
				SubscriptionID: user.SubscriptionID,
				ChangeType:     "created",
			}
			if err := u.tasks.Enqueue(task); err != nil {
				log.Printf("[Batch] Could not enqueue message %s: %v", messageID, err)
				atomic.AddInt64(&skipped, 1)
				return
			}
			atomic.AddInt64(&queued, 1)
		})
		if submitErr != nil {
			wg.Done()
			atomic.AddInt64(&skipped, 1)
		}
	}
	wg.Wait()

	log.Printf("[Batch] Queued %d of %d unread emails for user %s (%d skipped)",
		queued, len(messages), user.ID, skipped)

	return &dto.ProcessBatchResponse{
		Queued:  int(queued),
		Skipped: int(skipped),
	}, nil
}
