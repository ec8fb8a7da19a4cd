package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// consumeOne loads the row matching query and deletes it in the same
// transaction. A concurrent consumer that loses the race sees ErrRecordNotFound.
func consumeOne[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var out T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(query, args...).First(&out).Error; err != nil {
			return translate(err)
		}
		res := tx.Where(query, args...).Delete(new(T))
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func deleteWhere[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (int64, error) {
	res := db.WithContext(ctx).Where(query, args...).Delete(new(T))
	return res.RowsAffected, translate(res.Error)
}

// replaceOnUser upserts a one-per-user code row keyed by user_id.
func replaceOnUser(extra ...string) clause.OnConflict {
	cols := append([]string{"id", "created_at", "expires_at"}, extra...)
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}
}
