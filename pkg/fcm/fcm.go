package fcm

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging for device push.
type Client struct {
	messagingClient *messaging.Client
}

// NewClient initializes the Firebase app from a service-account credentials
// file. With an empty path the SDK falls back to application default
// credentials.
func NewClient(credentialsFile string) (*Client, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Println("[FCM] Client initialized")
	return &Client{messagingClient: messagingClient}, nil
}

// Notification is the payload pushed to a device.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendToDevice pushes a notification to a single device token.
func (c *Client) SendToDevice(ctx context.Context, token string, n Notification) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
	}

	response, err := c.messagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send FCM message: %w", err)
	}

	log.Printf("[FCM] Message sent: %s", response)
	return nil
}

// SendToDevices pushes a notification to multiple device tokens and returns
// the tokens that could not be delivered to, so callers can prune stale ones.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, n Notification) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("send FCM multicast: %w", err)
	}

	log.Printf("[FCM] Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)

	var failed []string
	for i, resp := range response.Responses {
		if !resp.Success {
			failed = append(failed, tokens[i])
			log.Printf("[FCM] Delivery failed for token #%d: %v", i, resp.Error)
		}
	}
	return failed, nil
}
