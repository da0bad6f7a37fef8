package domain

import "time"

type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Linked Microsoft mailbox. Token columns hold AEAD-encrypted values,
	// decrypted only when building Graph credentials.
	MicrosoftEmail string    `json:"microsoft_email,omitempty"`
	MSAccessToken  string    `json:"-"`
	MSRefreshToken string    `json:"-"`
	MSTokenExpiry  time.Time `json:"-"`

	// Graph change subscription covering the user's inbox. At most one
	// active subscription per user; renewal updates expiry in place.
	SubscriptionID          string    `json:"-" gorm:"index"`
	SubscriptionResource    string    `json:"-"`
	SubscriptionClientState string    `json:"-"`
	SubscriptionExpiresAt   time.Time `json:"-"`
}

// MicrosoftConnected reports whether the user has linked a mailbox.
func (u *User) MicrosoftConnected() bool {
	return u.MSRefreshToken != ""
}

// HasSubscription reports whether a change subscription is on record.
func (u *User) HasSubscription() bool {
	return u.SubscriptionID != ""
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
