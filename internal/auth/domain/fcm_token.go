package domain

import "time"

// FCMToken is one registered push device for a user. A user can hold several
// (one per browser or phone), each keyed by the FCM registration token.
type FCMToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
