package ratings

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
)

// SQLiteRepository implements Repository over dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, accountID, itemID int64, value float64) error {
	query :=
		`INSERT INTO ratings (account_id, item_id, value)
		 VALUES (?, ?, ?)
		 ON CONFLICT (account_id, item_id)
		 DO UPDATE SET value = excluded.value, recorded_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, accountID, itemID, value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListByAccount(ctx context.Context, accountID int64) (map[int64]float64, error) {
	query := `SELECT item_id, value FROM ratings WHERE account_id = ?`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]float64)
	for rows.Next() {
		var itemID int64
		var value float64
		if err := rows.Scan(&itemID, &value); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[itemID] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.Rating, error) {
	query := `SELECT account_id, item_id, value, recorded_at FROM ratings`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Rating
	for rows.Next() {
		var rating models.Rating
		var recordedAt dbx.Timestamp
		if err := rows.Scan(&rating.AccountID, &rating.ItemID, &rating.Value, &recordedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rating.RecordedAt = recordedAt.Time
		result = append(result, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
