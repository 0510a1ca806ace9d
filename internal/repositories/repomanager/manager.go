// Package repomanager is the schema manager and repository factory. It opens
// the backing database for a configured driver, brings the schema up with
// goose, verifies that the resulting tables have the expected shape, and
// vends repositories bound to any dbx.DBTX.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/accounts"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/ratings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type RepositoryManager interface {
	// Open returns a connection pool configured for the dialect.
	Open(ctx context.Context, dsn string) (*sql.DB, error)
	// EnsureSchema creates missing tables and fails with
	// common.ErrSchemaMismatch when existing ones have the wrong shape.
	EnsureSchema(ctx context.Context, db *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Ratings(db dbx.DBTX) ratings.Repository
}

// New returns the RepositoryManager for driver.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		return &PostgresRepositoryManager{}, nil
	case DriverSQLite:
		return &SQLiteRepositoryManager{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
