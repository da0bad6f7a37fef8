package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	actiondomain "mailsense-backend/internal/action/domain"
	authdomain "mailsense-backend/internal/auth/domain"
	emaildomain "mailsense-backend/internal/email/domain"
	emailrepo "mailsense-backend/internal/email/repository"
	"mailsense-backend/internal/pipeline/domain"
	"mailsense-backend/pkg/ai"
	"mailsense-backend/pkg/cache"
	"mailsense-backend/pkg/graph"
	"mailsense-backend/pkg/notifier"

	"gorm.io/gorm"
)

// Terminal outcomes of one processing attempt. A non-nil error from
// Process means the attempt failed transiently and may be retried.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
)

// UserResolver finds the account a notification belongs to.
type UserResolver interface {
	FindByID(id string) (*authdomain.User, error)
	FindBySubscriptionID(subscriptionID string) (*authdomain.User, error)
}

// CredentialSource resolves Graph credentials for a linked user.
type CredentialSource interface {
	CredentialsFor(user *authdomain.User) (*graph.Credentials, error)
}

// MessageSource fetches and flags mailbox messages.
type MessageSource interface {
	GetMessage(ctx context.Context, creds graph.Credentials, messageID string) (*graph.Message, error)
	MarkRead(ctx context.Context, creds graph.Credentials, messageID string) error
}

// Enricher runs the AI analysis chains over one email.
type Enricher interface {
	Enrich(ctx context.Context, subject, sender, body string, receivedAt time.Time) *ai.Result
}

// ActionRecorder turns suggested actions into trackable items.
type ActionRecorder interface {
	CreateFromSuggestions(userID, emailID, messageID string, suggestions []emaildomain.SuggestedAction) ([]*actiondomain.ActionItem, error)
}

// VectorUpserter mirrors processed emails into the vector index.
type VectorUpserter interface {
	UpsertEmail(ctx context.Context, messageID, userID, subject, body string, receivedAt time.Time, category string) error
}

// cachedSummary and cachedActions are the shapes stored under the
// ai_summary and ai_actions cache namespaces, keyed by content hash.
type cachedSummary struct {
	Summary      string  `json:"summary"`
	Sentiment    string  `json:"sentiment"`
	UrgencyScore float64 `json:"urgency_score"`
	Category     string  `json:"category"`
	Model        string  `json:"model"`
}

type cachedActions struct {
	Actions []ai.ActionItem `json:"actions"`
	Model   string          `json:"model"`
}

// Processor executes one enrichment task end to end: resolve the account,
// fetch the message, run AI analysis, persist the record and fan out the
// best-effort side effects (action items, vector index, digest).
type Processor struct {
	users     UserResolver
	creds     CredentialSource
	mail      MessageSource
	emailRepo emailrepo.EmailRepository
	enricher  Enricher
	actions   ActionRecorder
	vector    VectorUpserter
	notify    notifier.Notifier
	cache     *cache.Store
	cacheTTL  time.Duration
}

// NewProcessor wires a processor. actions, vector, notify and cacheStore
// may be nil; the corresponding step is skipped.
func NewProcessor(
	users UserResolver,
	creds CredentialSource,
	mail MessageSource,
	emailRepo emailrepo.EmailRepository,
	enricher Enricher,
	actions ActionRecorder,
	vector VectorUpserter,
	notify notifier.Notifier,
	cacheStore *cache.Store,
	cacheTTL time.Duration,
) *Processor {
	return &Processor{
		users:     users,
		creds:     creds,
		mail:      mail,
		emailRepo: emailRepo,
		enricher:  enricher,
		actions:   actions,
		vector:    vector,
		notify:    notify,
		cache:     cacheStore,
		cacheTTL:  cacheTTL,
	}
}

// Process runs one task. The returned outcome is terminal; a non-nil
// error means a transient failure the caller may retry.
func (p *Processor) Process(ctx context.Context, task domain.EnrichmentTask) (string, error) {
	user, err := p.resolveUser(task)
	if err != nil {
		return "", err
	}
	if user == nil {
		log.Printf("[Pipeline] No account for subscription %s, dropping message %s", task.SubscriptionID, task.MessageID)
		return OutcomeDropped, nil
	}

	// A clientState that does not match the stored secret means the
	// notification was not produced by our subscription.
	if task.ClientState != "" && user.SubscriptionClientState != "" && task.ClientState != user.SubscriptionClientState {
		log.Printf("[Pipeline] clientState mismatch for subscription %s, dropping message %s", task.SubscriptionID, task.MessageID)
		return OutcomeDropped, nil
	}

	creds, err := p.creds.CredentialsFor(user)
	if err != nil {
		log.Printf("[Pipeline] No usable credentials for user %s, dropping message %s: %v", user.ID, task.MessageID, err)
		return OutcomeDropped, nil
	}

	msg, err := p.mail.GetMessage(ctx, *creds, task.MessageID)
	if err != nil {
		return "", err
	}
	if msg == nil {
		log.Printf("[Pipeline] Message %s no longer exists upstream, dropping", task.MessageID)
		return OutcomeDropped, nil
	}

	exists, err := p.emailRepo.ExistsByMessageID(task.MessageID)
	if err != nil {
		return "", err
	}
	if exists {
		log.Printf("[Pipeline] Message %s already processed, skipping", task.MessageID)
		return OutcomeDuplicate, nil
	}

	record := p.enrich(ctx, user, msg)

	if err := p.emailRepo.Create(record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent worker won the race on the unique message id.
			log.Printf("[Pipeline] Message %s persisted concurrently, skipping", task.MessageID)
			return OutcomeDuplicate, nil
		}
		return "", err
	}

	p.fanOut(ctx, user, creds, record)

	log.Printf("[Pipeline] Processed message %s for user %s (model: %s, %.2fs)",
		record.MessageID, user.ID, record.AIModelUsed, record.ProcessingTimeSeconds)
	return OutcomeProcessed, nil
}

func (p *Processor) resolveUser(task domain.EnrichmentTask) (*authdomain.User, error) {
	// Batch tasks carry the user id directly; webhook tasks only know the
	// subscription that produced them.
	if task.UserID != "" {
		return p.users.FindByID(task.UserID)
	}
	return p.users.FindBySubscriptionID(task.SubscriptionID)
}

// enrich produces the stored record, serving the AI-derived fields from
// cache when the same content was analyzed before.
func (p *Processor) enrich(ctx context.Context, user *authdomain.User, msg *graph.Message) *emaildomain.EmailRecord {
	subject := msg.Subject
	bodyText := msg.PlainBody()

	record := &emaildomain.EmailRecord{
		UserID:         user.ID,
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Subject:        subject,
		SenderName:     msg.SenderName(),
		SenderAddress:  msg.SenderAddress(),
		Recipients:     msg.RecipientAddresses(),
		BodyText:       bodyText,
		BodyHTML:       msg.HTMLBody(),
		ReceivedAt:     msg.ReceivedTime(),
		IsRead:         msg.IsRead,
		HasAttachments: msg.HasAttachments,
		Importance:     msg.Importance,
		ProcessedAt:    time.Now(),
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now()
	}

	contentHash := cache.ContentHash(subject, bodyText)
	if summary, actions, ok := p.cachedResult(contentHash); ok {
		record.Summary = summary.Summary
		record.KeyPoints = keyPointsFromSummary(summary.Summary)
		record.Sentiment = summary.Sentiment
		record.UrgencyScore = summary.UrgencyScore
		record.Category = summary.Category
		record.SuggestedActions = toSuggestedActions(actions.Actions)
		record.AIModelUsed = ai.CachedTier
		record.ProcessingTimeSeconds = 0
		return record
	}

	start := time.Now()
	result := p.enricher.Enrich(ctx, subject, record.SenderAddress, bodyText, record.ReceivedAt)

	record.Summary = result.Summary
	record.KeyPoints = keyPointsFromSummary(result.Summary)
	record.Sentiment = result.Sentiment
	record.UrgencyScore = result.UrgencyScore
	record.Category = result.Category
	record.SuggestedActions = toSuggestedActions(result.Actions)
	record.AIModelUsed = result.SummaryModel
	record.ProcessingTimeSeconds = time.Since(start).Seconds()

	p.storeResult(contentHash, result)
	return record
}

// cachedResult loads both AI namespaces for the hash. Enrichment is only
// served from cache when both parts are present.
func (p *Processor) cachedResult(contentHash string) (cachedSummary, cachedActions, bool) {
	var summary cachedSummary
	var actions cachedActions
	if p.cache == nil {
		return summary, actions, false
	}

	ok, err := p.cache.Get(cache.NamespaceAISummary, contentHash, &summary)
	if err != nil || !ok {
		return summary, actions, false
	}
	ok, err = p.cache.Get(cache.NamespaceAIActions, contentHash, &actions)
	if err != nil || !ok {
		return summary, actions, false
	}
	return summary, actions, true
}

func (p *Processor) storeResult(contentHash string, result *ai.Result) {
	if p.cache == nil {
		return
	}

	summary := cachedSummary{
		Summary:      result.Summary,
		Sentiment:    result.Sentiment,
		UrgencyScore: result.UrgencyScore,
		Category:     result.Category,
		Model:        result.SummaryModel,
	}
	if err := p.cache.Set(cache.NamespaceAISummary, contentHash, summary, p.cacheTTL); err != nil {
		log.Printf("[Pipeline] Could not cache summary: %v", err)
	}

	actions := cachedActions{Actions: result.Actions, Model: result.ActionsModel}
	if err := p.cache.Set(cache.NamespaceAIActions, contentHash, actions, p.cacheTTL); err != nil {
		log.Printf("[Pipeline] Could not cache actions: %v", err)
	}
}

// fanOut runs the best-effort side effects after the record is stored.
// None of them can fail the task.
func (p *Processor) fanOut(ctx context.Context, user *authdomain.User, creds *graph.Credentials, record *emaildomain.EmailRecord) {
	if p.actions != nil && len(record.SuggestedActions) > 0 {
		if _, err := p.actions.CreateFromSuggestions(user.ID, record.ID, record.MessageID, record.SuggestedActions); err != nil {
			log.Printf("[Pipeline] Could not create action items for %s: %v", record.MessageID, err)
		}
	}

	if p.vector != nil {
		if err := p.vector.UpsertEmail(ctx, record.MessageID, user.ID, record.Subject, record.BodyText, record.ReceivedAt, record.Category); err != nil {
			log.Printf("[VectorSync] Could not index %s: %v", record.MessageID, err)
		}
	}

	if !record.IsRead {
		if err := p.mail.MarkRead(ctx, *creds, record.MessageID); err != nil {
			log.Printf("[Pipeline] Could not mark %s as read: %v", record.MessageID, err)
		}
	}

	if p.notify != nil {
		msg := notifier.Message{
			UserID: user.ID,
			Title:  "Unread email",
			Body:   record.Summary,
		}
		if err := p.notify.Send(ctx, msg); err != nil {
			log.Printf("[Pipeline] Could not send digest for %s: %v", record.MessageID, err)
		}
	}
}

// keyPointsFromSummary splits the bullet-formatted summary into bare
// key points.
func keyPointsFromSummary(summary string) []string {
	var points []string
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "•- ")
		if line != "" {
			points = append(points, line)
		}
	}
	return points
}

func toSuggestedActions(actions []ai.ActionItem) []emaildomain.SuggestedAction {
	if len(actions) == 0 {
		return nil
	}
	out := make([]emaildomain.SuggestedAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, emaildomain.SuggestedAction{
			Action:    a.Action,
			Type:      a.Type,
			Priority:  a.Priority,
			DueDate:   a.DueDate,
			Reasoning: a.Reasoning,
		})
	}
	return out
}
