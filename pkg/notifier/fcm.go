package notifier

import (
	"context"
	"fmt"
	"log"

	"mailsense-backend/pkg/fcm"
)

// FCM pushes digests to the devices registered for the target user.
type FCM struct {
	client *fcm.Client
	tokens TokenLookup
	prune  TokenPrune
}

func NewFCM(client *fcm.Client, tokens TokenLookup, prune TokenPrune) *FCM {
	return &FCM{client: client, tokens: tokens, prune: prune}
}

func (f *FCM) Send(ctx context.Context, msg Message) error {
	if msg.UserID == "" {
		log.Println("[Notifier] FCM digest has no target user, skipping")
		return nil
	}

	deviceTokens, err := f.tokens(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("look up device tokens: %w", err)
	}
	if len(deviceTokens) == 0 {
		log.Printf("[Notifier] No devices registered for user %s, skipping push", msg.UserID)
		return nil
	}

	failed, err := f.client.SendToDevices(ctx, deviceTokens, fcm.Notification{
		Title: msg.Title,
		Body:  msg.Body,
	})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		log.Printf("[Notifier] %d of %d device pushes failed for user %s", len(failed), len(deviceTokens), msg.UserID)
	}

	// Tokens Firebase rejects are stale registrations. Drop them so the
	// next digest does not retry dead devices.
	if f.prune != nil {
		for _, token := range failed {
			if err := f.prune(ctx, token); err != nil {
				log.Printf("[Notifier] Could not prune stale device token: %v", err)
			}
		}
	}
	return nil
}
