package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Inbox change feed watched by every subscription this service creates.
const (
	SubscriptionResource   = "me/mailFolders/inbox/messages"
	SubscriptionChangeType = "created"
)

type subscriptionRequest struct {
	ChangeType         string `json:"changeType"`
	NotificationURL    string `json:"notificationUrl"`
	Resource           string `json:"resource"`
	ExpirationDateTime string `json:"expirationDateTime"`
	ClientState        string `json:"clientState,omitempty"`
}

// CreateSubscription registers a webhook subscription on the user's
// inbox. clientState is echoed back in every notification so the
// receiver can attribute it.
func (c *Client) CreateSubscription(ctx context.Context, creds Credentials, notificationURL, clientState string, lifetime time.Duration) (*Subscription, error) {
	body := subscriptionRequest{
		ChangeType:         SubscriptionChangeType,
		NotificationURL:    notificationURL,
		Resource:           SubscriptionResource,
		ExpirationDateTime: time.Now().UTC().Add(lifetime).Format(time.RFC3339),
		ClientState:        clientState,
	}

	data, err := c.do(ctx, creds, http.MethodPost, c.baseURL+"/subscriptions", body)
	if err != nil {
		return nil, err
	}

	var sub Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("graph: decode subscription: %w", err)
	}
	return &sub, nil
}

// RenewSubscription pushes the expiry of an existing subscription
// forward. The subscription id never changes on renewal.
func (c *Client) RenewSubscription(ctx context.Context, creds Credentials, subscriptionID string, lifetime time.Duration) (*Subscription, error) {
	body := map[string]string{
		"expirationDateTime": time.Now().UTC().Add(lifetime).Format(time.RFC3339),
	}

	data, err := c.do(ctx, creds, http.MethodPatch, c.baseURL+"/subscriptions/"+subscriptionID, body)
	if err != nil {
		return nil, err
	}

	var sub Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("graph: decode subscription: %w", err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription. A 404 counts as success,
// the subscription is gone either way.
func (c *Client) DeleteSubscription(ctx context.Context, creds Credentials, subscriptionID string) error {
	_, err := c.do(ctx, creds, http.MethodDelete, c.baseURL+"/subscriptions/"+subscriptionID, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// GetSubscription fetches subscription details. Returns (nil, nil) when
// Graph no longer knows the id.
func (c *Client) GetSubscription(ctx context.Context, creds Credentials, subscriptionID string) (*Subscription, error) {
	data, err := c.do(ctx, creds, http.MethodGet, c.baseURL+"/subscriptions/"+subscriptionID, nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sub Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("graph: decode subscription: %w", err)
	}
	return &sub, nil
}
