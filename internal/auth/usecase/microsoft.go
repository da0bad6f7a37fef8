package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	authdomain "mailsense-backend/internal/auth/domain"
	"mailsense-backend/pkg/graph"
	"mailsense-backend/pkg/utils/crypto"

	"golang.org/x/oauth2"
)

// ErrMicrosoftNotLinked is returned by operations that need Graph access
// for a user who has not connected a Microsoft account.
var ErrMicrosoftNotLinked = errors.New("microsoft account not linked")

// ConnectURL returns the Microsoft authorization URL for the user, with a
// one-time state parameter bound to the user id.
func (u *authUsecase) ConnectURL(userID string) (string, error) {
	state, err := u.states.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}
	return u.msAuth.AuthCodeURL(state), nil
}

// HandleCallback finishes the authorization round trip: validates the state,
// exchanges the code, stores the encrypted token pair and records which
// mailbox got linked.
func (u *authUsecase) HandleCallback(ctx context.Context, state, code string) (*authdomain.User, error) {
	userID, ok := u.states.Consume(state)
	if !ok {
		return nil, errors.New("invalid or expired state")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	token, err := u.msAuth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	encAccess, err := crypto.Encrypt(token.AccessToken, u.config.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	user.MSAccessToken = encAccess
	user.MSTokenExpiry = token.Expiry

	if token.RefreshToken != "" {
		encRefresh, err := crypto.Encrypt(token.RefreshToken, u.config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		user.MSRefreshToken = encRefresh
	}

	// Best effort, the link is usable without the profile.
	profile, err := u.graph.GetUserProfile(ctx, graph.Credentials{AccessToken: token.AccessToken})
	if err != nil {
		log.Printf("[Auth] Could not fetch Microsoft profile for user %s: %v", user.ID, err)
	} else if profile != nil {
		user.MicrosoftEmail = profile.Email()
	}

	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}

	log.Printf("[Auth] Linked Microsoft mailbox %s to user %s", user.MicrosoftEmail, user.ID)
	return user, nil
}

// CredentialsFor rebuilds Graph credentials from the stored encrypted pair.
// The OnRefresh callback re-encrypts and persists tokens minted mid-call, so
// the next task starts from the fresh pair.
func (u *authUsecase) CredentialsFor(user *authdomain.User) (*graph.Credentials, error) {
	if user == nil || !user.MicrosoftConnected() {
		return nil, ErrMicrosoftNotLinked
	}

	var access string
	if user.MSAccessToken != "" {
		decrypted, err := crypto.Decrypt(user.MSAccessToken, u.config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt access token: %w", err)
		}
		access = decrypted
	}

	refresh, err := crypto.Decrypt(user.MSRefreshToken, u.config.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}

	userID := user.ID
	return &graph.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenExpiry:  user.MSTokenExpiry,
		OnRefresh: func(t *oauth2.Token) error {
			return u.persistRefreshedTokens(userID, t)
		},
	}, nil
}

func (u *authUsecase) persistRefreshedTokens(userID string, t *oauth2.Token) error {
	encAccess, err := crypto.Encrypt(t.AccessToken, u.config.EncryptionKey)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	// Microsoft rotates refresh tokens; an absent one means keep the old.
	var encRefresh string
	if t.RefreshToken != "" {
		encRefresh, err = crypto.Encrypt(t.RefreshToken, u.config.EncryptionKey)
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	return u.userRepo.UpdateMicrosoftTokens(userID, encAccess, encRefresh, t.Expiry)
}
