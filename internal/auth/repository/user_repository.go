package repository

import (
	"errors"
	"time"

	authdomain "mailsense-backend/internal/auth/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserRepository persists users, their linked mailbox state and the local
// API refresh tokens. Lookups return (nil, nil) when nothing matches.
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	FindBySubscriptionID(subscriptionID string) (*authdomain.User, error)
	FindWithExpiringSubscriptions(deadline time.Time) ([]authdomain.User, error)
	Update(user *authdomain.User) error
	UpdateMicrosoftTokens(userID, accessToken, refreshToken string, expiry time.Time) error

	SaveRefreshToken(token *authdomain.RefreshToken) error
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
	DeleteRefreshTokensByUser(userID string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *authdomain.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return r.db.Create(user).Error
}

func (r *userRepository) FindByEmail(email string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(id string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindBySubscriptionID resolves the owner of a Graph change subscription.
// The hot path for every incoming notification.
func (r *userRepository) FindBySubscriptionID(subscriptionID string) (*authdomain.User, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	var user authdomain.User
	err := r.db.Where("subscription_id = ?", subscriptionID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindWithExpiringSubscriptions returns users whose subscription expires
// before the deadline, for the renewal sweep.
func (r *userRepository) FindWithExpiringSubscriptions(deadline time.Time) ([]authdomain.User, error) {
	var users []authdomain.User
	err := r.db.
		Where("subscription_id <> ''").
		Where("subscription_expires_at < ?", deadline).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(user *authdomain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.Save(user).Error
}

// UpdateMicrosoftTokens writes only the token columns, so a refresh landing
// mid-request cannot clobber unrelated fields edited elsewhere. An empty
// refreshToken keeps the stored one.
func (r *userRepository) UpdateMicrosoftTokens(userID, accessToken, refreshToken string, expiry time.Time) error {
	updates := map[string]interface{}{
		"ms_access_token": accessToken,
		"ms_token_expiry": expiry,
		"updated_at":      time.Now(),
	}
	if refreshToken != "" {
		updates["ms_refresh_token"] = refreshToken
	}
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *userRepository) SaveRefreshToken(token *authdomain.RefreshToken) error {
	// Clean up expired tokens for the user while we are here, then insert.
	// Valid tokens from other devices stay live.
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND expires_at < ?", token.UserID, time.Now()).Delete(&authdomain.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

func (r *userRepository) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	var refreshToken authdomain.RefreshToken
	err := r.db.Where("token = ?", token).First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refreshToken, nil
}

func (r *userRepository) DeleteRefreshToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&authdomain.RefreshToken{}).Error
}

func (r *userRepository) DeleteRefreshTokensByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&authdomain.RefreshToken{}).Error
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
