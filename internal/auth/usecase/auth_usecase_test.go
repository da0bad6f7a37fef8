package usecase

import (
	"net/url"
	"strings"
	"testing"
	"time"

	authdomain "mailsense-backend/internal/auth/domain"
	authdto "mailsense-backend/internal/auth/dto"
	"mailsense-backend/pkg/config"
	"mailsense-backend/pkg/graph"
	"mailsense-backend/pkg/msauth"
	"mailsense-backend/pkg/statestore"
	"mailsense-backend/pkg/utils/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenUpdate struct {
	userID  string
	access  string
	refresh string
	expiry  time.Time
}

type fakeUserRepo struct {
	users        map[string]*authdomain.User
	tokens       map[string]*authdomain.RefreshToken
	tokenUpdates []tokenUpdate
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*authdomain.User),
		tokens: make(map[string]*authdomain.RefreshToken),
	}
}

func (f *fakeUserRepo) Create(user *authdomain.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) FindBySubscriptionID(subscriptionID string) (*authdomain.User, error) {
	for _, u := range f.users {
		if u.SubscriptionID == subscriptionID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindWithExpiringSubscriptions(deadline time.Time) ([]authdomain.User, error) {
	var out []authdomain.User
	for _, u := range f.users {
		if u.SubscriptionID != "" && u.SubscriptionExpiresAt.Before(deadline) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Update(user *authdomain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateMicrosoftTokens(userID, accessToken, refreshToken string, expiry time.Time) error {
	f.tokenUpdates = append(f.tokenUpdates, tokenUpdate{userID, accessToken, refreshToken, expiry})
	return nil
}

func (f *fakeUserRepo) SaveRefreshToken(token *authdomain.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeUserRepo) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	return f.tokens[token], nil
}

func (f *fakeUserRepo) DeleteRefreshToken(token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeUserRepo) DeleteRefreshTokensByUser(userID string) error {
	for k, v := range f.tokens {
		if v.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

type fakeFCMRepo struct {
	byToken map[string]authdomain.FCMToken
}

func newFakeFCMRepo() *fakeFCMRepo {
	return &fakeFCMRepo{byToken: make(map[string]authdomain.FCMToken)}
}

func (f *fakeFCMRepo) SaveToken(userID, token, deviceInfo string) error {
	f.byToken[token] = authdomain.FCMToken{UserID: userID, Token: token, DeviceInfo: deviceInfo}
	return nil
}

func (f *fakeFCMRepo) GetTokensByUserID(userID string) ([]authdomain.FCMToken, error) {
	var out []authdomain.FCMToken
	for _, t := range f.byToken {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeFCMRepo) DeleteToken(token string) error {
	delete(f.byToken, token)
	return nil
}

func (f *fakeFCMRepo) DeleteTokensByUserID(userID string) error {
	for k, v := range f.byToken {
		if v.UserID == userID {
			delete(f.byToken, k)
		}
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "unit-test-secret",
		JWTAccessExpiry:  time.Minute,
		JWTRefreshExpiry: time.Hour,
		EncryptionKey:    "unit-test-encryption-key",
	}
}

func newTestUsecase(t *testing.T) (AuthUsecase, *fakeUserRepo, *statestore.Store) {
	t.Helper()
	repo := newFakeUserRepo()
	states := statestore.New(time.Minute)
	msAuth := msauth.NewService("client-id", "client-secret", "http://localhost/callback", "common")
	graphClient := graph.NewClient(msAuth, nil, "", time.Second, 0)
	uc := NewAuthUsecase(repo, newFakeFCMRepo(), testConfig(), msAuth, graphClient, states)
	return uc, repo, states
}

func TestRegisterAndLogin(t *testing.T) {
	uc, repo, _ := newTestUsecase(t)

	resp, err := uc.Register(&authdto.RegisterRequest{
		Email:    "ada@example.com",
		Password: "hunter22",
		Name:     "Ada",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, "hunter22", repo.users[resp.User.ID].Password, "password must be hashed")

	login, err := uc.Login(&authdto.LoginRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = uc.Login(&authdto.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	_, err := uc.Register(&authdto.RegisterRequest{Email: "ada@example.com", Password: "hunter22", Name: "Ada"})
	require.NoError(t, err)

	_, err = uc.Register(&authdto.RegisterRequest{Email: "ada@example.com", Password: "hunter23", Name: "Ada II"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRefreshTokenRotates(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	resp, err := uc.Register(&authdto.RegisterRequest{Email: "ada@example.com", Password: "hunter22", Name: "Ada"})
	require.NoError(t, err)

	renewed, err := uc.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, renewed.AccessToken)

	// The consumed refresh token must be dead.
	_, err = uc.RefreshToken(resp.RefreshToken)
	assert.Error(t, err)

	// The replacement works.
	_, err = uc.RefreshToken(renewed.RefreshToken)
	assert.NoError(t, err)
}

func TestValidateToken(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	resp, err := uc.Register(&authdto.RegisterRequest{Email: "ada@example.com", Password: "hunter22", Name: "Ada"})
	require.NoError(t, err)

	user, err := uc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = uc.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestLogoutKillsRefreshToken(t *testing.T) {
	uc, _, _ := newTestUsecase(t)

	resp, err := uc.Register(&authdto.RegisterRequest{Email: "ada@example.com", Password: "hunter22", Name: "Ada"})
	require.NoError(t, err)

	require.NoError(t, uc.Logout(resp.RefreshToken))

	_, err = uc.RefreshToken(resp.RefreshToken)
	assert.Error(t, err)
}

func TestConnectURLBindsOneTimeState(t *testing.T) {
	uc, repo, states := newTestUsecase(t)

	user := &authdomain.User{Email: "ada@example.com"}
	require.NoError(t, repo.Create(user))

	authURL, err := uc.ConnectURL(user.ID)
	require.NoError(t, err)
	assert.True(t, strings.Contains(authURL, "client_id=client-id"))

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	boundUser, ok := states.Consume(state)
	assert.True(t, ok)
	assert.Equal(t, user.ID, boundUser)

	_, ok = states.Consume(state)
	assert.False(t, ok, "state must be single use")
}

func TestCredentialsForDecryptsStoredTokens(t *testing.T) {
	uc, repo, _ := newTestUsecase(t)
	cfg := testConfig()

	encAccess, err := crypto.Encrypt("access-plain", cfg.EncryptionKey)
	require.NoError(t, err)
	encRefresh, err := crypto.Encrypt("refresh-plain", cfg.EncryptionKey)
	require.NoError(t, err)

	expiry := time.Now().Add(30 * time.Minute)
	user := &authdomain.User{
		Email:          "ada@example.com",
		MSAccessToken:  encAccess,
		MSRefreshToken: encRefresh,
		MSTokenExpiry:  expiry,
	}
	require.NoError(t, repo.Create(user))

	creds, err := uc.CredentialsFor(user)
	require.NoError(t, err)
	assert.Equal(t, "access-plain", creds.AccessToken)
	assert.Equal(t, "refresh-plain", creds.RefreshToken)
	assert.Equal(t, expiry, creds.TokenExpiry)

	// A refresh mid-call must land back in the store, re-encrypted.
	newExpiry := time.Now().Add(time.Hour)
	err = creds.OnRefresh(&oauth2.Token{
		AccessToken:  "access-new",
		RefreshToken: "refresh-new",
		Expiry:       newExpiry,
	})
	require.NoError(t, err)

	require.Len(t, repo.tokenUpdates, 1)
	update := repo.tokenUpdates[0]
	assert.Equal(t, user.ID, update.userID)

	gotAccess, err := crypto.Decrypt(update.access, cfg.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "access-new", gotAccess)

	gotRefresh, err := crypto.Decrypt(update.refresh, cfg.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "refresh-new", gotRefresh)
	assert.Equal(t, newExpiry, update.expiry)
}

func TestCredentialsForRequiresLink(t *testing.T) {
	uc, repo, _ := newTestUsecase(t)

	user := &authdomain.User{Email: "ada@example.com"}
	require.NoError(t, repo.Create(user))

	_, err := uc.CredentialsFor(user)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not linked")
}
