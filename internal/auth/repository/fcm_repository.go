package repository

import (
	"time"

	authdomain "mailsense-backend/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FCMTokenRepository stores push device registrations per user.
type FCMTokenRepository interface {
	SaveToken(userID, token, deviceInfo string) error
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
	DeleteToken(token string) error
	DeleteTokensByUserID(userID string) error
}

type fcmTokenRepository struct {
	db *gorm.DB
}

func NewFCMTokenRepository(db *gorm.DB) FCMTokenRepository {
	return &fcmTokenRepository{db: db}
}

// SaveToken upserts a device token. Re-registering a token moves it to the
// new user, which covers account switches on a shared device.
func (r *fcmTokenRepository) SaveToken(userID, token, deviceInfo string) error {
	fcmToken := &authdomain.FCMToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(fcmToken).Error
}

func (r *fcmTokenRepository) GetTokensByUserID(userID string) ([]authdomain.FCMToken, error) {
	var tokens []authdomain.FCMToken
	if err := r.db.Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *fcmTokenRepository) DeleteToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&authdomain.FCMToken{}).Error
}

func (r *fcmTokenRepository) DeleteTokensByUserID(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&authdomain.FCMToken{}).Error
}
