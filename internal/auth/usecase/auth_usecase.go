package usecase

import (
	"errors"
	"time"

	authdomain "mailsense-backend/internal/auth/domain"
	authdto "mailsense-backend/internal/auth/dto"
	"mailsense-backend/internal/auth/repository"
	"mailsense-backend/pkg/config"
	"mailsense-backend/pkg/graph"
	"mailsense-backend/pkg/msauth"
	"mailsense-backend/pkg/statestore"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type authUsecase struct {
	userRepo repository.UserRepository
	fcmRepo  repository.FCMTokenRepository
	config   *config.Config
	msAuth   *msauth.Service
	graph    *graph.Client
	states   *statestore.Store
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	fcmRepo repository.FCMTokenRepository,
	cfg *config.Config,
	msAuth *msauth.Service,
	graphClient *graph.Client,
	states *statestore.Store,
) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		fcmRepo:  fcmRepo,
		config:   cfg,
		msAuth:   msAuth,
		graph:    graphClient,
		states:   states,
	}
}

func (u *authUsecase) Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	existing, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &authdomain.User{
		Email:    req.Email,
		Password: hashedPassword,
		Name:     req.Name,
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}

	return u.generateTokens(user)
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("invalid email or password")
	}
	if !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, errors.New("invalid email or password")
	}

	return u.generateTokens(user)
}

func (u *authUsecase) RefreshToken(refreshToken string) (*authdto.TokenResponse, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	// The token must still be on record; logout removes it.
	storedToken, err := u.userRepo.FindRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if storedToken == nil || storedToken.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("refresh token expired")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	// Rotate: the old refresh token dies with this exchange.
	if err := u.userRepo.DeleteRefreshToken(refreshToken); err != nil {
		return nil, err
	}

	return u.generateTokens(user)
}

func (u *authUsecase) Logout(refreshToken string) error {
	return u.userRepo.DeleteRefreshToken(refreshToken)
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	return user, nil
}

func (u *authUsecase) RegisterDevice(userID, token, deviceInfo string) error {
	return u.fcmRepo.SaveToken(userID, token, deviceInfo)
}

func (u *authUsecase) RemoveDevice(token string) error {
	return u.fcmRepo.DeleteToken(token)
}

func (u *authUsecase) DeviceTokens(userID string) ([]string, error) {
	records, err := u.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(records))
	for _, r := range records {
		tokens = append(tokens, r.Token)
	}
	return tokens, nil
}

func (u *authUsecase) generateTokens(user *authdomain.User) (*authdto.TokenResponse, error) {
	accessToken, err := u.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := u.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	entity := &authdomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(u.config.JWTRefreshExpiry),
	}
	if err := u.userRepo.SaveRefreshToken(entity); err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (u *authUsecase) generateAccessToken(user *authdomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) generateRefreshToken(user *authdomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"token_id": uuid.New().String(),
		"exp":      time.Now().Add(u.config.JWTRefreshExpiry).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}
