package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/filex"
	"github.com/dmitrijs2005/ratingkeeper/internal/migrations"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/accounts"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/ratings"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

const sqliteUniqueIndexes = `
SELECT il.name, ii.name
FROM pragma_index_list(?) AS il, pragma_index_info(il.name) AS ii
WHERE il."unique" = 1 AND il.partial = 0`

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

// Open opens dsn (a file path or file: URI) with WAL and a busy timeout.
// The pool is limited to one connection: SQLite admits a single writer and
// extra pooled connections would only trade waiting for SQLITE_BUSY.
func (m *SQLiteRepositoryManager) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if path := filex.SQLitePath(dsn); path != "" {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
	}

	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

func (m *SQLiteRepositoryManager) EnsureSchema(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, goose.DialectSQLite3, migrations.SQLiteDir, sqliteUniqueIndexes)
}

func (m *SQLiteRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Ratings(db dbx.DBTX) ratings.Repository {
	return ratings.NewSQLiteRepository(db)
}
