package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	pipelinedomain "mailsense-backend/internal/pipeline/domain"
	"mailsense-backend/pkg/graph"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// TaskEnqueuer hands parsed notifications to the enrichment queue.
type TaskEnqueuer interface {
	Enqueue(task pipelinedomain.EnrichmentTask) error
}

// Bridge drains a Pub/Sub subscription carrying relayed Graph change
// notifications and feeds them into the enrichment queue. Deployments
// whose webhook endpoint is not publicly reachable run a small relay
// that republishes Graph's POST bodies onto the topic; the payloads are
// the same NotificationEnvelope JSON the webhook receives directly.
type Bridge struct {
	client *pubsub.Client
	tasks  TaskEnqueuer
	topic  string
	sub    string
}

func NewBridge(projectID, topic, subscription string, tasks TaskEnqueuer, credentialsFile string) (*Bridge, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &Bridge{
		client: client,
		tasks:  tasks,
		topic:  topic,
		sub:    subscription,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled. Run it in its
// own goroutine.
func (b *Bridge) Start(ctx context.Context) {
	log.Printf("[PubSub] Bridge starting on topic %s, subscription %s", b.topic, b.sub)

	sub := b.client.Subscription(b.sub)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Could not check subscription %s: %v", b.sub, err)
		return
	}

	if !exists {
		topic := b.client.Topic(b.topic)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Could not check topic %s: %v", b.topic, err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, bridge disabled", b.topic)
			return
		}

		sub, err = b.client.CreateSubscription(ctx, b.sub, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Could not create subscription %s: %v", b.sub, err)
			return
		}
		log.Printf("[PubSub] Created subscription %s", b.sub)
	}

	err = sub.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
		b.handleMessage(msg.Data)
		// Always ack. A notification we cannot use now will not become
		// usable on redelivery.
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Receive stopped: %v", err)
	}
}

// Close releases the underlying client.
func (b *Bridge) Close() error {
	return b.client.Close()
}

func (b *Bridge) handleMessage(data []byte) {
	var envelope graph.NotificationEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Printf("[PubSub] Discarding unparseable message: %v", err)
		return
	}

	queued := 0
	for _, n := range envelope.Value {
		messageID := graph.MessageIDFromResource(n.Resource)
		if messageID == "" {
			log.Printf("[PubSub] Notification with unusable resource %q, skipping", n.Resource)
			continue
		}

		task := pipelinedomain.EnrichmentTask{
			MessageID:      messageID,
			SubscriptionID: n.SubscriptionID,
			ChangeType:     n.ChangeType,
			ClientState:    n.ClientState,
		}
		if err := b.tasks.Enqueue(task); err != nil {
			log.Printf("[PubSub] Could not enqueue message %s: %v", messageID, err)
			continue
		}
		queued++
	}

	if len(envelope.Value) > 0 {
		log.Printf("[PubSub] Accepted %d of %d notifications", queued, len(envelope.Value))
	}
}
