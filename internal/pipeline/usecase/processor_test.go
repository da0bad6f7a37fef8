package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	byID  map[string]*authdomain.User
	bySub map[string]*authdomain.User
}

func (f *fakeUsers) FindByID(id string) (*authdomain.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) FindBySubscriptionID(subscriptionID string) (*authdomain.User, error) {
	return f.bySub[subscriptionID], nil
}

type fakeCreds struct {
	err error
}

func (f *fakeCreds) CredentialsFor(user *authdomain.User) (*graph.Credentials, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &graph.Credentials{AccessToken: "token"}, nil
}

type fakeMail struct {
	mu       sync.Mutex
	messages map[string]*graph.Message
	fetchErr error
	marked   []string
}

func (f *fakeMail) GetMessage(ctx context.Context, creds graph.Credentials, messageID string) (*graph.Message, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.messages[messageID], nil
}

func (f *fakeMail) MarkRead(ctx context.Context, creds graph.Credentials, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, messageID)
	return nil
}

type storeEmailRepo struct {
	mu        sync.Mutex
	records   []*emaildomain.EmailRecord
	createErr error
}

func (r *storeEmailRepo) Create(record *emaildomain.EmailRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if record.ID == "" {
		record.ID = "rec-" + record.MessageID
	}
	r.records = append(r.records, record)
	return nil
}

func (r *storeEmailRepo) ExistsByMessageID(messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *storeEmailRepo) GetByMessageID(messageID string) (*emaildomain.EmailRecord, error) {
	return nil, nil
}
func (r *storeEmailRepo) GetByID(userID, id string) (*emaildomain.EmailRecord, error) {
	return nil, nil
}
func (r *storeEmailRepo) GetByMessageIDs(userID string, messageIDs []string) ([]emaildomain.EmailRecord, error) {
	return nil, nil
}
func (r *storeEmailRepo) List(userID string, filter emailrepo.ListFilter) ([]emaildomain.EmailRecord, int64, error) {
	return nil, 0, nil
}
func (r *storeEmailRepo) ListRecent(userID string, limit int) ([]emaildomain.EmailRecord, error) {
	return nil, nil
}

// subjectEnricher derives its output from the input so tests can tell
// which email an answer belongs to. Safe for concurrent use.
type subjectEnricher struct {
	mu    sync.Mutex
	calls int
}

func (e *subjectEnricher) Enrich(ctx context.Context, subject, sender, body string, receivedAt time.Time) *ai.Result {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return &ai.Result{
		Summary:      "• " + subject,
		SummaryModel: "gemini:gemini-1.5-flash",
		Actions: []ai.ActionItem{
			{Action: "Review " + subject, Type: "review", Priority: "medium", Reasoning: "follow up"},
		},
		ActionsModel: "openai:gpt-4",
		Sentiment:    "neutral",
		UrgencyScore: 0.4,
		Category:     "question",
	}
}

type countingEnricher struct {
	calls  int
	result *ai.Result
}

func (e *countingEnricher) Enrich(ctx context.Context, subject, sender, body string, receivedAt time.Time) *ai.Result {
	e.calls++
	if e.result != nil {
		return e.result
	}
	return &ai.Result{
		Summary:      "• Point one\n• Point two",
		SummaryModel: "gemini:gemini-1.5-flash",
		Actions: []ai.ActionItem{
			{Action: "Reply to Alice", Type: "reply", Priority: "high", Reasoning: "question"},
		},
		ActionsModel: "openai:gpt-4",
		Sentiment:    "neutral",
		UrgencyScore: 0.4,
		Category:     "question",
	}
}

type captureActions struct {
	created [][]emaildomain.SuggestedAction
	userIDs []string
}

func (a *captureActions) CreateFromSuggestions(userID, emailID, messageID string, suggestions []emaildomain.SuggestedAction) ([]*actiondomain.ActionItem, error) {
	a.created = append(a.created, suggestions)
	a.userIDs = append(a.userIDs, userID)
	return nil, nil
}

type captureVector struct {
	upserts []string
	err     error
}

func (v *captureVector) UpsertEmail(ctx context.Context, messageID, userID, subject, body string, receivedAt time.Time, category string) error {
	v.upserts = append(v.upserts, messageID)
	return v.err
}

type captureNotifier struct {
	sent []notifier.Message
}

func (n *captureNotifier) Send(ctx context.Context, msg notifier.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

func testMessage(id string) *graph.Message {
	return &graph.Message{
		ID:             id,
		ConversationID: "conv-1",
		Subject:        "Project deadline",
		Body:           graph.ItemBody{ContentType: "text", Content: "Can you send the report by Friday?"},
		From: &graph.Recipient{EmailAddress: graph.EmailAddress{
			Name: "Alice", Address: "alice@example.com",
		}},
		ToRecipients:     []graph.Recipient{{EmailAddress: graph.EmailAddress{Address: "me@example.com"}}},
		ReceivedDateTime: "2026-03-01T10:00:00Z",
		IsRead:           false,
		Importance:       "normal",
	}
}

type processorEnv struct {
	users    *fakeUsers
	creds    *fakeCreds
	mail     *fakeMail
	repo     *storeEmailRepo
	enricher *countingEnricher
	actions  *captureActions
	vector   *captureVector
	notify   *captureNotifier
	store    *cache.Store
	proc     *Processor
}

func newProcessorEnv(t *testing.T) *processorEnv {
	t.Helper()

	store, err := cache.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	user := &authdomain.User{ID: "u1", SubscriptionID: "sub-1", SubscriptionClientState: "secret-1", MSRefreshToken: "enc"}
	env := &processorEnv{
		users:    &fakeUsers{byID: map[string]*authdomain.User{"u1": user}, bySub: map[string]*authdomain.User{"sub-1": user}},
		creds:    &fakeCreds{},
		mail:     &fakeMail{messages: map[string]*graph.Message{}},
		repo:     &storeEmailRepo{},
		enricher: &countingEnricher{},
		actions:  &captureActions{},
		vector:   &captureVector{},
		notify:   &captureNotifier{},
		store:    store,
	}
	env.proc = NewProcessor(env.users, env.creds, env.mail, env.repo, env.enricher, env.actions, env.vector, env.notify, store, time.Hour)
	return env
}

func TestProcessHappyPath(t *testing.T) {
	env := newProcessorEnv(t)
	env.mail.messages["msg-1"] = testMessage("msg-1")

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID:      "msg-1",
		SubscriptionID: "sub-1",
		ClientState:    "secret-1",
		ChangeType:     "created",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	require.Len(t, env.repo.records, 1)
	record := env.repo.records[0]
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, "msg-1", record.MessageID)
	assert.Equal(t, "Project deadline", record.Subject)
	assert.Equal(t, "alice@example.com", record.SenderAddress)
	assert.Equal(t, []string{"me@example.com"}, record.Recipients)
	assert.Equal(t, "• Point one\n• Point two", record.Summary)
	assert.Equal(t, []string{"Point one", "Point two"}, record.KeyPoints)
	assert.Equal(t, "gemini:gemini-1.5-flash", record.AIModelUsed)
	assert.Equal(t, "question", record.Category)
	require.Len(t, record.SuggestedActions, 1)
	assert.Equal(t, "Reply to Alice", record.SuggestedActions[0].Action)

	// Side effects all fired.
	require.Len(t, env.actions.created, 1)
	assert.Equal(t, "u1", env.actions.userIDs[0])
	assert.Equal(t, []string{"msg-1"}, env.vector.upserts)
	assert.Equal(t, []string{"msg-1"}, env.mail.marked)
	require.Len(t, env.notify.sent, 1)
	assert.Equal(t, "Unread email", env.notify.sent[0].Title)
	assert.Equal(t, record.Summary, env.notify.sent[0].Body)
}

func TestProcessResolvesUserByIDForBatchTasks(t *testing.T) {
	env := newProcessorEnv(t)
	env.mail.messages["msg-1"] = testMessage("msg-1")

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID: "msg-1",
		UserID:    "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
}

func TestProcessDropsUnknownSubscription(t *testing.T) {
	env := newProcessorEnv(t)

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID:      "msg-1",
		SubscriptionID: "sub-unknown",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Zero(t, env.enricher.calls)
}

func TestProcessDropsClientStateMismatch(t *testing.T) {
	env := newProcessorEnv(t)
	env.mail.messages["msg-1"] = testMessage("msg-1")

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID:      "msg-1",
		SubscriptionID: "sub-1",
		ClientState:    "forged",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
	assert.Empty(t, env.repo.records)
}

func TestProcessDropsWhenCredentialsUnavailable(t *testing.T) {
	env := newProcessorEnv(t)
	env.creds.err = errors.New("not linked")

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID:      "msg-1",
		SubscriptionID: "sub-1",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestProcessDropsVanishedMessage(t *testing.T) {
	env := newProcessorEnv(t)
	// no message registered: GetMessage returns nil, nil

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID:      "msg-gone",
		SubscriptionID: "sub-1",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestProcessDuplicateIsNoOp(t *testing.T) {
	env := newProcessorEnv(t)
	env.mail.messages["msg-1"] = testMessage("msg-1")

	_, err := env.proc.Process(context.Background(), domain.EnrichmentTask{MessageID: "msg-1", SubscriptionID: "sub-1"})
	require.NoError(t, err)

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{MessageID: "msg-1", SubscriptionID: "sub-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	assert.Len(t, env.repo.records, 1, "no second record")
	assert.Equal(t, 1, env.enricher.calls, "duplicate must not re-run enrichment")
}

func TestProcessFetchErrorIsTransient(t *testing.T) {
	env := newProcessorEnv(t)
	env.mail.fetchErr = errors.New("graph 503")

	_, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID:      "msg-1",
		SubscriptionID: "sub-1",
	})
	assert.Error(t, err, "upstream failures surface for retry")
}

func TestProcessServesRepeatedContentFromCache(t *testing.T) {
	env := newProcessorEnv(t)
	// Same subject and body under two different message ids.
	env.mail.messages["msg-1"] = testMessage("msg-1")
	env.mail.messages["msg-2"] = testMessage("msg-2")

	_, err := env.proc.Process(context.Background(), domain.EnrichmentTask{MessageID: "msg-1", SubscriptionID: "sub-1"})
	require.NoError(t, err)

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{MessageID: "msg-2", SubscriptionID: "sub-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	assert.Equal(t, 1, env.enricher.calls, "identical content must hit the AI cache")

	require.Len(t, env.repo.records, 2)
	cached := env.repo.records[1]
	assert.Equal(t, ai.CachedTier, cached.AIModelUsed)
	assert.Zero(t, cached.ProcessingTimeSeconds)
	assert.Equal(t, env.repo.records[0].Summary, cached.Summary)
	require.Len(t, cached.SuggestedActions, 1)
	assert.Equal(t, "Reply to Alice", cached.SuggestedActions[0].Action)
}

func TestProcessConcurrentTasksKeepCachedOutputSeparate(t *testing.T) {
	env := newProcessorEnv(t)
	enricher := &subjectEnricher{}
	env.proc = NewProcessor(env.users, env.creds, env.mail, env.repo, enricher, nil, nil, nil, env.store, time.Hour)

	budget := testMessage("msg-budget")
	budget.Subject = "Budget review"
	budget.Body.Content = "Q2 numbers attached."
	lunch := testMessage("msg-lunch")
	lunch.Subject = "Lunch on Friday"
	lunch.Body.Content = "Pizza or ramen?"
	env.mail.messages["msg-budget"] = budget
	env.mail.messages["msg-lunch"] = lunch

	var wg sync.WaitGroup
	for _, id := range []string{"msg-budget", "msg-lunch"} {
		wg.Add(1)
		go func(messageID string) {
			defer wg.Done()
			outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
				MessageID:      messageID,
				SubscriptionID: "sub-1",
				ClientState:    "secret-1",
			})
			assert.NoError(t, err)
			assert.Equal(t, OutcomeProcessed, outcome)
		}(id)
	}
	wg.Wait()

	require.Len(t, env.repo.records, 2)
	summaries := map[string]string{}
	for _, rec := range env.repo.records {
		summaries[rec.Subject] = rec.Summary
	}
	assert.Equal(t, "• Budget review", summaries["Budget review"])
	assert.Equal(t, "• Lunch on Friday", summaries["Lunch on Friday"])
	assert.Equal(t, 2, enricher.calls)

	// A third message repeating one of the bodies must be answered from
	// that body's own cache entry, not its neighbour's.
	repeat := testMessage("msg-budget-repeat")
	repeat.Subject = budget.Subject
	repeat.Body = budget.Body
	env.mail.messages["msg-budget-repeat"] = repeat

	outcome, err := env.proc.Process(context.Background(), domain.EnrichmentTask{
		MessageID:      "msg-budget-repeat",
		SubscriptionID: "sub-1",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 2, enricher.calls, "repeated content must hit the cache")

	require.Len(t, env.repo.records, 3)
	replay := env.repo.records[2]
	assert.Equal(t, "• Budget review", replay.Summary)
	require.Len(t, replay.SuggestedActions, 1)
	assert.Equal(t, "Review Budget review", replay.SuggestedActions[0].Action)
	assert.Equal(t, ai.CachedTier, replay.AIModelUsed)
}

func TestKeyPointsFromSummary(t *testing.T) {
	points := keyPointsFromSummary("• First point\n- Second point\n\n  Third point  ")
	assert.Equal(t, []string{"First point", "Second point", "Third point"}, points)

	assert.Nil(t, keyPointsFromSummary(""))
}
