package domain

import "time"

// AuthorizationCode is a one-time capability redeemed for a token pair.
type AuthorizationCode struct {
	ID               string       `gorm:"type:text;primaryKey" db:"id"`
	UserID           UserID       `gorm:"type:uuid;index;not null" db:"user_id"`
	AuthProviderType ProviderType `gorm:"type:text;not null" db:"auth_provider_type"`
	CreatedAt        time.Time    `gorm:"not null" db:"created_at"`
	ExpiresAt        time.Time    `gorm:"not null" db:"expires_at"`
}

func (AuthorizationCode) TableName() string { return "authorization_codes" }

// EmailVerification confirms ownership of Email for UserID. Email may differ
// from the user's current address when the user is changing it.
type EmailVerification struct {
	ID        string    `gorm:"type:text;primaryKey" db:"id"`
	UserID    UserID    `gorm:"type:uuid;uniqueIndex:ux_email_verifications_user;not null" db:"user_id"`
	Email     string    `gorm:"type:text;index;not null" db:"email"`
	CreatedAt time.Time `gorm:"not null" db:"created_at"`
	ExpiresAt time.Time `gorm:"not null" db:"expires_at"`
}

func (EmailVerification) TableName() string { return "email_verifications" }

type PasswordRecovery struct {
	ID        string    `gorm:"type:text;primaryKey" db:"id"`
	UserID    UserID    `gorm:"type:uuid;uniqueIndex:ux_password_recoveries_user;not null" db:"user_id"`
	CreatedAt time.Time `gorm:"not null" db:"created_at"`
	ExpiresAt time.Time `gorm:"not null" db:"expires_at"`
}

func (PasswordRecovery) TableName() string { return "password_recoveries" }

// Expired reports whether a code with the given expiry is no longer usable at now.
func Expired(expiresAt, now time.Time) bool { return !now.Before(expiresAt) }
