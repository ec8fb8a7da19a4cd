package store

import (
	"context"

	"gorm.io/gorm"

	"authcore/internal/domain"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

// WithTx runs fn inside a database transaction. Stores obtained from tx share it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// Migrate creates or updates the tables and unique indexes for every entity.
func (s *Store) Migrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(
		&domain.User{},
		&domain.Session{},
		&domain.AuthorizationCode{},
		&domain.EmailVerification{},
		&domain.PasswordRecovery{},
	)
}
