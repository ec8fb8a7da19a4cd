package store

import (
	"context"

	"gorm.io/gorm"

	"authcore/internal/domain"
)

type EmailVerificationStore struct{ db *gorm.DB }

func (s *Store) EmailVerifications() *EmailVerificationStore {
	return &EmailVerificationStore{db: s.DB}
}

// ReplaceForUser stores v as the only pending verification of v.UserID. The
// unique index on user_id turns a concurrent second insert into an update.
func (e *EmailVerificationStore) ReplaceForUser(ctx context.Context, v *domain.EmailVerification) error {
	return translate(e.db.WithContext(ctx).Clauses(replaceOnUser("email")).Create(v).Error)
}

func (e *EmailVerificationStore) Get(ctx context.Context, email, code string) (*domain.EmailVerification, error) {
	var v domain.EmailVerification
	if err := e.db.WithContext(ctx).First(&v, "email = ? AND id = ?", email, code).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (e *EmailVerificationStore) Delete(ctx context.Context, code string) (int64, error) {
	return deleteWhere[domain.EmailVerification](ctx, e.db, "id = ?", code)
}

func (e *EmailVerificationStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	return deleteWhere[domain.EmailVerification](ctx, e.db, "user_id = ?", userID)
}
