package ratings

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, accountID, itemID int64, value float64) error {
	query :=
		`INSERT INTO ratings (account_id, item_id, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (account_id, item_id)
		 DO UPDATE SET value = EXCLUDED.value, recorded_at = now()`

	if _, err := r.db.ExecContext(ctx, query, accountID, itemID, value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID int64) (map[int64]float64, error) {
	query := `SELECT item_id, value FROM ratings WHERE account_id = $1`

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

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Rating, error) {
	query := `SELECT account_id, item_id, value, recorded_at FROM ratings`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Rating
	for rows.Next() {
		var rating models.Rating
		if err := rows.Scan(&rating.AccountID, &rating.ItemID, &rating.Value, &rating.RecordedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
