// Package items caches events and holidays for offline month views.
package items

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dualcal/internal/client/models"
	"github.com/dmitrijs2005/dualcal/internal/dbx"
)

type Repository interface {
	// Replace swaps every cached item of kind for items.
	Replace(ctx context.Context, kind models.Kind, items []models.Item) error
	Upsert(ctx context.Context, item models.Item) error
	// ListMonth returns items dated in the month named by prefix
	// ("YYYY-MM"), ordered by date then title.
	ListMonth(ctx context.Context, prefix string) ([]models.Item, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const upsertItem = `
	INSERT INTO items (id, kind, title, date) VALUES (?, ?, ?, ?)
	ON CONFLICT(kind, id) DO UPDATE SET title = excluded.title, date = excluded.date`

func upsert(ctx context.Context, db dbx.DBTX, it models.Item) error {
	_, err := db.ExecContext(ctx, upsertItem, it.ID, string(it.Kind), it.Title, it.Date)
	return err
}

func (r *SQLiteRepository) Replace(ctx context.Context, kind models.Kind, items []models.Item) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE kind = ?`, string(kind)); err != nil {
			return err
		}
		for _, it := range items {
			it.Kind = kind
			if err := upsert(ctx, tx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s items: %w", kind, err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, item models.Item) error {
	if err := upsert(ctx, r.db, item); err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListMonth(ctx context.Context, prefix string) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, title, date FROM items WHERE date LIKE ? ORDER BY date, title`, prefix+"-%")
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var it models.Item
		var kind string
		if err := rows.Scan(&it.ID, &kind, &it.Title, &it.Date); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.Kind = models.Kind(kind)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return out, nil
}
