package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	authdomain "mailsense-backend/internal/auth/domain"
	"mailsense-backend/pkg/config"
	"mailsense-backend/pkg/graph"
	"mailsense-backend/pkg/utils/crypto"
)

// ErrNoSubscription is returned when an operation needs an existing
// subscription and the user has none on record.
var ErrNoSubscription = errors.New("no subscription on record")

const clientStateBytes = 32

type subscriptionUsecase struct {
	users    UserStore
	creds    CredentialSource
	graphAPI SubscriptionAPI
	cfg      *config.Config
}

func NewSubscriptionUsecase(users UserStore, creds CredentialSource, graphAPI SubscriptionAPI, cfg *config.Config) SubscriptionUsecase {
	return &subscriptionUsecase{users: users, creds: creds, graphAPI: graphAPI, cfg: cfg}
}

func (u *subscriptionUsecase) lifetime() time.Duration {
	return time.Duration(u.cfg.SubscriptionTTLMinutes) * time.Minute
}

// Create registers an inbox subscription for the user. An existing one is
// replaced in place: the old upstream subscription is deleted best-effort
// first so Graph does not deliver the same change through both.
func (u *subscriptionUsecase) Create(ctx context.Context, user *authdomain.User) (*Status, error) {
	creds, err := u.creds.CredentialsFor(user)
	if err != nil {
		return nil, err
	}

	if user.HasSubscription() {
		if err := u.graphAPI.DeleteSubscription(ctx, *creds, user.SubscriptionID); err != nil {
			log.Printf("[Subscription] Could not remove old subscription %s for user %s: %v", user.SubscriptionID, user.ID, err)
		}
	}

	clientState, err := crypto.RandomToken(clientStateBytes)
	if err != nil {
		return nil, fmt.Errorf("generate client state: %w", err)
	}

	sub, err := u.graphAPI.CreateSubscription(ctx, *creds, u.cfg.WebhookNotificationURL, clientState, u.lifetime())
	if err != nil {
		return nil, err
	}

	user.SubscriptionID = sub.ID
	user.SubscriptionResource = sub.Resource
	user.SubscriptionClientState = clientState
	user.SubscriptionExpiresAt = sub.ExpiresAt()
	if err := u.users.Update(user); err != nil {
		return nil, err
	}

	log.Printf("[Subscription] Created subscription %s for user %s, expires %s", sub.ID, user.ID, sub.ExpirationDateTime)
	return activeStatus(sub), nil
}

// Renew pushes the expiry forward. The subscription id does not change.
func (u *subscriptionUsecase) Renew(ctx context.Context, user *authdomain.User) (*Status, error) {
	if !user.HasSubscription() {
		return nil, ErrNoSubscription
	}
	creds, err := u.creds.CredentialsFor(user)
	if err != nil {
		return nil, err
	}

	sub, err := u.graphAPI.RenewSubscription(ctx, *creds, user.SubscriptionID, u.lifetime())
	if err != nil {
		return nil, err
	}

	user.SubscriptionExpiresAt = sub.ExpiresAt()
	if err := u.users.Update(user); err != nil {
		return nil, err
	}

	log.Printf("[Subscription] Renewed subscription %s for user %s, expires %s", user.SubscriptionID, user.ID, sub.ExpirationDateTime)
	return activeStatus(sub), nil
}

// Delete tears the subscription down. Local state clears even when the
// upstream delete fails; an orphaned subscription lapses on its own
// within days.
func (u *subscriptionUsecase) Delete(ctx context.Context, user *authdomain.User) error {
	if !user.HasSubscription() {
		return ErrNoSubscription
	}

	if creds, err := u.creds.CredentialsFor(user); err != nil {
		log.Printf("[Subscription] No credentials to delete subscription %s upstream: %v", user.SubscriptionID, err)
	} else if err := u.graphAPI.DeleteSubscription(ctx, *creds, user.SubscriptionID); err != nil {
		log.Printf("[Subscription] Upstream delete of subscription %s failed: %v", user.SubscriptionID, err)
	}

	user.SubscriptionID = ""
	user.SubscriptionResource = ""
	user.SubscriptionClientState = ""
	user.SubscriptionExpiresAt = time.Time{}
	return u.users.Update(user)
}

// Status reports the subscription as Graph currently sees it.
func (u *subscriptionUsecase) Status(ctx context.Context, user *authdomain.User) (*Status, error) {
	if !user.HasSubscription() {
		return &Status{State: StateNone}, nil
	}

	creds, err := u.creds.CredentialsFor(user)
	if err != nil {
		return &Status{State: StateTokenExpired, SubscriptionID: user.SubscriptionID}, nil
	}

	sub, err := u.graphAPI.GetSubscription(ctx, *creds, user.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &Status{State: StateNotFoundInGraph, SubscriptionID: user.SubscriptionID}, nil
	}
	return activeStatus(sub), nil
}

func activeStatus(sub *graph.Subscription) *Status {
	expires := sub.ExpiresAt()
	return &Status{
		State:          StateActive,
		SubscriptionID: sub.ID,
		Resource:       sub.Resource,
		ChangeType:     sub.ChangeType,
		ExpiresAt:      &expires,
	}
}
