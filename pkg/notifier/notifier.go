package notifier

import (
	"context"
	"log"

	"mailsense-backend/pkg/config"
	"mailsense-backend/pkg/fcm"
)

// Message is one outbound notification. UserID is set when the digest belongs
// to a specific account; variants that push per-device use it to look up the
// stored device tokens, the broadcast variants ignore it.
type Message struct {
	UserID string
	Title  string
	Body   string
}

// Notifier delivers digest messages to wherever the deployment points them.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// TokenLookup resolves the registered device tokens for a user.
type TokenLookup func(ctx context.Context, userID string) ([]string, error)

// TokenPrune removes a device token Firebase reported as dead.
type TokenPrune func(ctx context.Context, token string) error

// New builds the notifier selected by NOTIFIER_TYPE. Misconfigured variants
// fall back to console with a warning rather than failing startup.
func New(cfg *config.Config, fcmClient *fcm.Client, tokens TokenLookup, prune TokenPrune) Notifier {
	switch cfg.NotifierType {
	case "telegram":
		if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
			log.Println("[Notifier] TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is not set, falling back to console")
			return NewConsole()
		}
		return NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	case "fcm":
		if fcmClient == nil || tokens == nil {
			log.Println("[Notifier] FCM client unavailable, falling back to console")
			return NewConsole()
		}
		return NewFCM(fcmClient, tokens, prune)
	default:
		return NewConsole()
	}
}
