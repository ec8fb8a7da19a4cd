package domain

import "time"

type Session struct {
	ID               SessionID    `gorm:"type:uuid;primaryKey" db:"id"`
	UserID           UserID       `gorm:"type:uuid;index;not null" db:"user_id"`
	RefreshSecret    string       `gorm:"type:text;not null;uniqueIndex:ux_sessions_refresh_secret" db:"refresh_secret"`
	UserAgent        string       `gorm:"type:text" db:"user_agent"`
	IPAddress        string       `gorm:"type:text" db:"ip_address"`
	AuthProviderType ProviderType `gorm:"type:text;not null" db:"auth_provider_type"`
	CreatedAt        time.Time    `gorm:"not null" db:"created_at"`
	ExpiresAt        time.Time    `gorm:"not null" db:"expires_at"`
	RevokedAt        *time.Time   `db:"revoked_at"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) IsRevoked() bool { return s.RevokedAt != nil }
