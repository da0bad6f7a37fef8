package delivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mailsense-backend/internal/pipeline/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureEnqueuer struct {
	tasks  []domain.EnrichmentTask
	reject bool
}

func (c *captureEnqueuer) Enqueue(task domain.EnrichmentTask) error {
	if c.reject {
		return domain.ErrQueueFull
	}
	c.tasks = append(c.tasks, task)
	return nil
}

func newWebhookRouter(tasks TaskEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/notifications", NewWebhookHandler(tasks).HandleNotification)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestValidationHandshakeEchoesQueryToken(t *testing.T) {
	r := newWebhookRouter(&captureEnqueuer{})

	req := httptest.NewRequest(http.MethodPost, "/notifications?validationToken=abc%20123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc 123", rec.Body.String(), "token must be echoed verbatim")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestValidationHandshakeEchoesBodyToken(t *testing.T) {
	r := newWebhookRouter(&captureEnqueuer{})

	rec := postJSON(t, r, "/notifications", []byte(`{"validationToken":"tok-9"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-9", rec.Body.String())
}

func TestMalformedPayloadRejected(t *testing.T) {
	enq := &captureEnqueuer{}
	r := newWebhookRouter(enq)

	rec := postJSON(t, r, "/notifications", []byte(`{"value": [`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, enq.tasks)
}

func TestNotificationBatchEnqueued(t *testing.T) {
	enq := &captureEnqueuer{}
	r := newWebhookRouter(enq)

	payload, _ := json.Marshal(map[string]any{
		"value": []map[string]any{
			{
				"subscriptionId": "sub-1",
				"clientState":    "secret-1",
				"changeType":     "created",
				"resource":       "Users/u1/Messages/msg-1",
			},
			{
				"subscriptionId": "sub-1",
				"changeType":     "created",
				"resource":       "Users/u1/Messages/msg-2",
			},
		},
	})

	rec := postJSON(t, r, "/notifications", payload)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enq.tasks, 2)
	assert.Equal(t, "msg-1", enq.tasks[0].MessageID)
	assert.Equal(t, "sub-1", enq.tasks[0].SubscriptionID)
	assert.Equal(t, "secret-1", enq.tasks[0].ClientState)
	assert.Equal(t, "created", enq.tasks[0].ChangeType)
	assert.Equal(t, "msg-2", enq.tasks[1].MessageID)
}

func TestUnusableEntrySkippedOthersSurvive(t *testing.T) {
	enq := &captureEnqueuer{}
	r := newWebhookRouter(enq)

	payload, _ := json.Marshal(map[string]any{
		"value": []map[string]any{
			{"subscriptionId": "sub-1", "resource": ""},
			{"subscriptionId": "sub-1", "resource": "Users/u1/Messages/msg-3", "changeType": "created"},
		},
	})

	rec := postJSON(t, r, "/notifications", payload)

	assert.Equal(t, http.StatusAccepted, rec.Code, "one bad entry must not fail the batch")
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, "msg-3", enq.tasks[0].MessageID)
}

func TestQueueFullStillAcknowledged(t *testing.T) {
	r := newWebhookRouter(&captureEnqueuer{reject: true})

	payload, _ := json.Marshal(map[string]any{
		"value": []map[string]any{
			{"subscriptionId": "sub-1", "resource": "Users/u1/Messages/msg-1", "changeType": "created"},
		},
	})

	rec := postJSON(t, r, "/notifications", payload)

	assert.Equal(t, http.StatusAccepted, rec.Code, "overload must not bounce the webhook")
}

func TestEmptyBatchAccepted(t *testing.T) {
	r := newWebhookRouter(&captureEnqueuer{})

	rec := postJSON(t, r, "/notifications", []byte(`{"value": []}`))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
