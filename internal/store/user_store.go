package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/domain"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	return translate(u.db.WithContext(ctx).Create(usr).Error)
}

func (u *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByProviderIdentity(ctx context.Context, provider domain.ProviderType, externalID string) (*domain.User, error) {
	var user domain.User
	err := u.db.WithContext(ctx).
		First(&user, "auth_provider_type = ? AND auth_provider_external_id = ?", provider, externalID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SetEmailVerified binds email to the user and marks it verified.
// A unique violation on users.email surfaces as ErrDuplicateKey.
func (u *UserStore) SetEmailVerified(ctx context.Context, id domain.UserID, email string, at time.Time) error {
	return u.update(ctx, id, map[string]any{
		"email":             email,
		"email_verified_at": at,
		"updated_at":        at,
	})
}

func (u *UserStore) UpdatePassword(ctx context.Context, id domain.UserID, hash, salt string, iterations int, at time.Time) error {
	return u.update(ctx, id, map[string]any{
		"password_hash": hash,
		"salt":          salt,
		"iterations":    iterations,
		"updated_at":    at,
	})
}

// SetTOTPSecret stores a pending secret; it stays disabled until EnableTOTP.
func (u *UserStore) SetTOTPSecret(ctx context.Context, id domain.UserID, secret string, at time.Time) error {
	return u.update(ctx, id, map[string]any{
		"totp_secret":     secret,
		"totp_enabled_at": nil,
		"updated_at":      at,
	})
}

func (u *UserStore) EnableTOTP(ctx context.Context, id domain.UserID, at time.Time) error {
	res := u.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND totp_secret IS NOT NULL", id).
		Updates(map[string]any{"totp_enabled_at": at, "updated_at": at})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (u *UserStore) DisableTOTP(ctx context.Context, id domain.UserID, at time.Time) error {
	return u.update(ctx, id, map[string]any{
		"totp_secret":     nil,
		"totp_enabled_at": nil,
		"updated_at":      at,
	})
}

func (u *UserStore) update(ctx context.Context, id domain.UserID, fields map[string]any) error {
	res := u.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
