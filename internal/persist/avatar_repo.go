package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AvatarRow is a server-controlled avatar as stored between runs. Only the
// resting position survives a restart; motion is not persisted.
type AvatarRow struct {
	UnitType int16
	X        int32
	Y        int32
}

type AvatarRepo struct {
	db *DB
}

func NewAvatarRepo(db *DB) *AvatarRepo {
	return &AvatarRepo{db: db}
}

// SaveAll replaces the stored population with rows in one transaction.
func (r *AvatarRepo) SaveAll(ctx context.Context, rows []AvatarRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("avatars begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM world_avatars`); err != nil {
		return fmt.Errorf("avatars clear: %w", err)
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"world_avatars"},
			[]string{"unit_type", "x", "y"},
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				return []any{rows[i].UnitType, rows[i].X, rows[i].Y}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("avatars copy: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// LoadAll returns the stored population in insertion order.
func (r *AvatarRepo) LoadAll(ctx context.Context) ([]AvatarRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT unit_type, x, y FROM world_avatars ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("avatars query: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AvatarRow, error) {
		var a AvatarRow
		err := row.Scan(&a.UnitType, &a.X, &a.Y)
		return a, err
	})
}
