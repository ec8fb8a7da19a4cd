package store

import (
	"context"

	"gorm.io/gorm"

	"authcore/internal/domain"
)

type AuthCodeStore struct{ db *gorm.DB }

func (s *Store) AuthCodes() *AuthCodeStore { return &AuthCodeStore{db: s.DB} }

func (a *AuthCodeStore) Create(ctx context.Context, c *domain.AuthorizationCode) error {
	return translate(a.db.WithContext(ctx).Create(c).Error)
}

// Consume atomically removes and returns the code. Only one caller can win.
func (a *AuthCodeStore) Consume(ctx context.Context, id string) (*domain.AuthorizationCode, error) {
	return consumeOne[domain.AuthorizationCode](ctx, a.db, "id = ?", id)
}

func (a *AuthCodeStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	return deleteWhere[domain.AuthorizationCode](ctx, a.db, "user_id = ?", userID)
}
