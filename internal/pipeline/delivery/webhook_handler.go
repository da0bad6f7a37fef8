package delivery

import (
	"log"
	"net/http"

	"mailsense-backend/internal/pipeline/domain"
	"mailsense-backend/pkg/graph"

	"github.com/gin-gonic/gin"
)

// TaskEnqueuer hands parsed notifications to the background pipeline.
type TaskEnqueuer interface {
	Enqueue(task domain.EnrichmentTask) error
}

// WebhookHandler terminates Microsoft Graph change notifications. It must
// answer fast: real work happens on the queue, never in the request.
type WebhookHandler struct {
	tasks TaskEnqueuer
}

func NewWebhookHandler(tasks TaskEnqueuer) *WebhookHandler {
	return &WebhookHandler{tasks: tasks}
}

// HandleNotification implements POST /notifications.
//
// Graph validates a new subscription endpoint by sending validationToken
// and expecting it echoed back as plain text. Everything else is a change
// batch: each entry is parsed and enqueued individually, and the batch is
// acknowledged with 202 no matter how many entries could be used. Slow or
// failing responses here would make Graph suspend the subscription.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	if token := c.Query("validationToken"); token != "" {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(token))
		return
	}

	var envelope graph.NotificationEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification payload"})
		return
	}

	if envelope.ValidationToken != "" {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(envelope.ValidationToken))
		return
	}

	queued := 0
	for _, n := range envelope.Value {
		messageID := graph.MessageIDFromResource(n.Resource)
		if messageID == "" {
			log.Printf("[Webhook] Notification with unusable resource %q, skipping", n.Resource)
			continue
		}

		task := domain.EnrichmentTask{
			MessageID:      messageID,
			SubscriptionID: n.SubscriptionID,
			ChangeType:     n.ChangeType,
			ClientState:    n.ClientState,
		}
		if err := h.tasks.Enqueue(task); err != nil {
			// Keep acknowledging: Graph retries delivery on its own and a
			// 5xx here would eventually suspend the subscription.
			log.Printf("[Webhook] Could not enqueue message %s: %v", messageID, err)
			continue
		}
		queued++
	}

	if len(envelope.Value) > 0 {
		log.Printf("[Webhook] Accepted %d of %d notifications", queued, len(envelope.Value))
	}
	c.Status(http.StatusAccepted)
}
