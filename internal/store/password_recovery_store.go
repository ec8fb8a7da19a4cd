package store

import (
	"context"

	"gorm.io/gorm"

	"authcore/internal/domain"
)

type PasswordRecoveryStore struct{ db *gorm.DB }

func (s *Store) PasswordRecoveries() *PasswordRecoveryStore {
	return &PasswordRecoveryStore{db: s.DB}
}

// ReplaceForUser stores r as the only pending recovery of r.UserID.
func (p *PasswordRecoveryStore) ReplaceForUser(ctx context.Context, r *domain.PasswordRecovery) error {
	return translate(p.db.WithContext(ctx).Clauses(replaceOnUser()).Create(r).Error)
}

func (p *PasswordRecoveryStore) Get(ctx context.Context, code string, userID domain.UserID) (*domain.PasswordRecovery, error) {
	var r domain.PasswordRecovery
	if err := p.db.WithContext(ctx).First(&r, "id = ? AND user_id = ?", code, userID).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (p *PasswordRecoveryStore) Delete(ctx context.Context, code string) (int64, error) {
	return deleteWhere[domain.PasswordRecovery](ctx, p.db, "id = ?", code)
}

func (p *PasswordRecoveryStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	return deleteWhere[domain.PasswordRecovery](ctx, p.db, "user_id = ?", userID)
}
