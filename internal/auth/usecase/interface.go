package usecase

import (
	"context"

	authdomain "mailsense-backend/internal/auth/domain"
	authdto "mailsense-backend/internal/auth/dto"
	"mailsense-backend/pkg/graph"
)

// AuthUsecase covers local API auth, the Microsoft account link and push
// device registration.
type AuthUsecase interface {
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)

	// Microsoft account link. ConnectURL issues a one-time state bound to
	// the user; HandleCallback consumes it, exchanges the code and stores
	// the encrypted token pair. CredentialsFor rebuilds Graph credentials
	// from the stored pair, persisting refreshed tokens as they happen.
	ConnectURL(userID string) (string, error)
	HandleCallback(ctx context.Context, state, code string) (*authdomain.User, error)
	CredentialsFor(user *authdomain.User) (*graph.Credentials, error)

	RegisterDevice(userID, token, deviceInfo string) error
	RemoveDevice(token string) error
	DeviceTokens(userID string) ([]string, error)
}
