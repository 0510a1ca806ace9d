// Package accounts persists registered accounts. Username uniqueness is
// enforced by the database; implementations translate the engine's
// uniqueness violation into common.ErrDuplicateUsername.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/ratingkeeper/internal/models"
)

type Repository interface {
	// Create inserts the account and fills in the store-assigned ID.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	// GetByUserName returns common.ErrorNotFound when no account matches.
	GetByUserName(ctx context.Context, userName string) (*models.Account, error)
	// UpdateSecretHash replaces the stored digest, e.g. after a rehash.
	UpdateSecretHash(ctx context.Context, id int64, secretHash string) error
}
