package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ratingkeeper/internal/common"
	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteRepository implements Repository over dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, secret_hash)
		 VALUES (?, ?)
		 RETURNING id, created_at`

	var createdAt dbx.Timestamp
	err := r.db.QueryRowContext(ctx, query, account.UserName, account.SecretHash).
		Scan(&account.ID, &createdAt)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, common.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	account.CreatedAt = createdAt.Time

	return account, nil
}

func (r *SQLiteRepository) GetByUserName(ctx context.Context, userName string) (*models.Account, error) {
	query :=
		`SELECT id, username, secret_hash, created_at FROM accounts
		 WHERE username = ?`

	account := &models.Account{}
	var createdAt dbx.Timestamp
	err := r.db.QueryRowContext(ctx, query, userName).
		Scan(&account.ID, &account.UserName, &account.SecretHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	account.CreatedAt = createdAt.Time

	return account, nil
}

func (r *SQLiteRepository) UpdateSecretHash(ctx context.Context, id int64, secretHash string) error {
	query := `UPDATE accounts SET secret_hash = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, secretHash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
