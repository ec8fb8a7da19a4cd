package events

import "time"

type SessionCreated struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Provider  string    `json:"provider"`
	At        time.Time `json:"at"`
}

func (SessionCreated) EventName() string { return "session.created" }

type SessionRevoked struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (SessionRevoked) EventName() string { return "session.revoked" }
