package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/domain"
)

type SessionStore struct{ db *gorm.DB }

func (s *Store) Sessions() *SessionStore { return &SessionStore{s.DB} }

func (ss *SessionStore) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return translate(ss.db.WithContext(ctx).Create(s).Error)
}

// GetForUser loads a session only when it belongs to userID.
func (ss *SessionStore) GetForUser(ctx context.Context, id domain.SessionID, userID domain.UserID) (*domain.Session, error) {
	var s domain.Session
	if err := ss.db.WithContext(ctx).First(&s, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Revoke marks an unrevoked session revoked. It returns the number of rows
// changed, so zero means the session was missing or already revoked.
func (ss *SessionStore) Revoke(ctx context.Context, id domain.SessionID, at time.Time) (int64, error) {
	tx := ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	return tx.RowsAffected, translate(tx.Error)
}

func (ss *SessionStore) RevokeAllForUser(ctx context.Context, userID domain.UserID, at time.Time) (int64, error) {
	tx := ss.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	return tx.RowsAffected, translate(tx.Error)
}
