package events

import "time"

type UserRegistered struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email,omitempty"`
	Provider string    `json:"provider"`
	At       time.Time `json:"at"`
}

func (UserRegistered) EventName() string { return "user.registered" }

type EmailVerified struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

func (EmailVerified) EventName() string { return "user.email_verified" }

type PasswordReset struct {
	UserID          string    `json:"userId"`
	SessionsRevoked int64     `json:"sessionsRevoked"`
	At              time.Time `json:"at"`
}

func (PasswordReset) EventName() string { return "user.password_reset" }

type UserDeleted struct {
	UserID  string           `json:"userId"`
	Deleted map[string]int64 `json:"deleted"`
	At      time.Time        `json:"at"`
}

func (UserDeleted) EventName() string { return "user.deleted" }
