package store

import (
	"context"

	"authcore/internal/domain"
)

// DeleteUserData removes the user and everything keyed by the user id,
// returning the number of rows removed per table.
func (s *Store) DeleteUserData(ctx context.Context, userID domain.UserID) (map[string]int64, error) {
	deleted := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		steps := []struct {
			label string
			run   func() (int64, error)
		}{
			{"sessions", func() (int64, error) {
				return deleteWhere[domain.Session](ctx, tx.DB, "user_id = ?", userID)
			}},
			{"authorizationCodes", func() (int64, error) { return tx.AuthCodes().DeleteAllForUser(ctx, userID) }},
			{"emailVerifications", func() (int64, error) { return tx.EmailVerifications().DeleteAllForUser(ctx, userID) }},
			{"passwordRecoveries", func() (int64, error) { return tx.PasswordRecoveries().DeleteAllForUser(ctx, userID) }},
			{"users", func() (int64, error) { return deleteWhere[domain.User](ctx, tx.DB, "id = ?", userID) }},
		}
		for _, step := range steps {
			n, err := step.run()
			if err != nil {
				return err
			}
			deleted[step.label] = n
		}
		if deleted["users"] == 0 {
			return ErrRecordNotFound
		}
		return nil
	})

	return deleted, err
}
