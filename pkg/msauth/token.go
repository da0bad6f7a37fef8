package msauth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// TokenUpdateFunc receives refreshed OAuth tokens so callers can persist them.
type TokenUpdateFunc func(token *oauth2.Token) error

// Scopes requested for mailbox access. offline_access is required to
// receive a refresh token.
var Scopes = []string{"offline_access", "User.Read", "Mail.Read", "Mail.ReadWrite"}

type Service struct {
	config *oauth2.Config
}

func NewService(clientID, clientSecret, redirectURL, tenant string) *Service {
	return &Service{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			Scopes:       Scopes,
		},
	}
}

// AuthCodeURL builds the consent page URL carrying the CSRF state token.
func (s *Service) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access/refresh token pair.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[MSAuth] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// Client returns an HTTP client that authorizes requests with the user's
// tokens and transparently refreshes them. onRefresh is invoked whenever
// the access token changes so the new pair can be stored.
func (s *Service) Client(ctx context.Context, accessToken, refreshToken string, expiry time.Time, onRefresh TokenUpdateFunc) *http.Client {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}

	// Without a recorded expiry we cannot tell whether the access token is
	// still good, so force a refresh when a refresh token is available.
	if expiry.IsZero() && refreshToken != "" {
		token.Expiry = time.Now()
	}

	src := s.config.TokenSource(ctx, token)

	return oauth2.NewClient(ctx, &notifyTokenSource{
		src:      src,
		current:  token,
		callback: onRefresh,
	})
}
