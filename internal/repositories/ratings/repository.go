// Package ratings persists the current rating each account gave an item.
//
// Upsert is a single INSERT ... ON CONFLICT statement so the database, not
// the caller, decides between insert and replace. Concurrent upserts on the
// same (account, item) therefore never produce duplicate rows; the last
// commit wins.
package ratings

import (
	"context"

	"github.com/dmitrijs2005/ratingkeeper/internal/models"
)

type Repository interface {
	// Upsert sets the current value for (accountID, itemID) and stamps
	// recorded_at with the database clock.
	Upsert(ctx context.Context, accountID, itemID int64, value float64) error
	// ListByAccount returns itemID -> value for one account.
	ListByAccount(ctx context.Context, accountID int64) (map[int64]float64, error)
	// ListAll returns every stored rating in no particular order.
	ListAll(ctx context.Context) ([]models.Rating, error)
}
