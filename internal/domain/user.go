package domain

import "time"

type User struct {
	ID                     UserID       `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Email                  *string      `gorm:"type:text;uniqueIndex:ux_users_email" db:"email" json:"email"`
	DisplayName            string       `gorm:"type:text;not null;default:''" db:"display_name" json:"displayName"`
	AvatarURL              *string      `gorm:"type:text" db:"avatar_url" json:"avatarUrl,omitempty"`
	PasswordHash           *string      `gorm:"type:text" db:"password_hash" json:"-"`
	Salt                   *string      `gorm:"type:text" db:"salt" json:"-"`
	Iterations             *int         `db:"iterations" json:"-"`
	AuthProviderType       ProviderType `gorm:"type:text;not null;uniqueIndex:ux_users_provider_identity,priority:1" db:"auth_provider_type" json:"authProviderType"`
	AuthProviderExternalID *string      `gorm:"type:text;uniqueIndex:ux_users_provider_identity,priority:2" db:"auth_provider_external_id" json:"-"`
	TOTPSecret             *string      `gorm:"column:totp_secret;type:text" db:"totp_secret" json:"-"`
	TOTPEnabledAt          *time.Time   `gorm:"column:totp_enabled_at" db:"totp_enabled_at" json:"totpEnabledAt,omitempty"`
	EmailVerifiedAt        *time.Time   `db:"email_verified_at" json:"emailVerifiedAt,omitempty"`
	CreatedAt              time.Time    `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time    `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// EmailAddress returns the user's email or "" when none is on record.
func (u *User) EmailAddress() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}

func (u *User) IsEmailVerified() bool { return u != nil && u.EmailVerifiedAt != nil }

// HasPassword reports whether all password credential columns are present.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != nil && u.Salt != nil && u.Iterations != nil
}

// TOTPEnabled reports whether a confirmed TOTP secret is enrolled.
func (u *User) TOTPEnabled() bool {
	return u != nil && u.TOTPSecret != nil && u.TOTPEnabledAt != nil
}
