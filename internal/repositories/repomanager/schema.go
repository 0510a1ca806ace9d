package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/dmitrijs2005/ratingkeeper/internal/common"
	"github.com/dmitrijs2005/ratingkeeper/internal/migrations"
	"github.com/pressly/goose/v3"
)

// newProvider is a seam for testing goose.NewProvider.
var newProvider = goose.NewProvider

// schemaProbes select every column the repositories rely on. They return no
// rows but fail if a table or column is missing.
var schemaProbes = []string{
	`SELECT id, username, secret_hash, created_at FROM accounts WHERE 1 = 0`,
	`SELECT account_id, item_id, value, recorded_at FROM ratings WHERE 1 = 0`,
}

type uniqueKey struct {
	table   string
	columns []string
}

// uniqueKeys must exist for duplicate detection and ON CONFLICT upserts.
var uniqueKeys = []uniqueKey{
	{table: "accounts", columns: []string{"username"}},
	{table: "ratings", columns: []string{"account_id", "item_id"}},
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir, uniqueIndexQuery string, opts ...goose.ProviderOption) error {
	fsys, err := fs.Sub(migrations.Migrations, dir)
	if err != nil {
		return fmt.Errorf("migrations dir %s: %w", dir, err)
	}

	p, err := newProvider(dialect, db, fsys, opts...)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}

	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return verifySchema(ctx, db, uniqueIndexQuery)
}

// verifySchema checks the columns and unique keys of existing tables.
// uniqueIndexQuery takes a table name and returns (index, column) rows for
// every non-partial unique index on it.
func verifySchema(ctx context.Context, db *sql.DB, uniqueIndexQuery string) error {
	for _, probe := range schemaProbes {
		rows, err := db.QueryContext(ctx, probe)
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrSchemaMismatch, err)
		}
		err = rows.Err()
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrSchemaMismatch, err)
		}
	}

	for _, key := range uniqueKeys {
		indexes, err := uniqueIndexes(ctx, db, uniqueIndexQuery, key.table)
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrSchemaMismatch, err)
		}
		if !hasIndexOn(indexes, key.columns) {
			return fmt.Errorf("%w: %s has no unique key on (%s)",
				common.ErrSchemaMismatch, key.table, strings.Join(key.columns, ", "))
		}
	}
	return nil
}

func uniqueIndexes(ctx context.Context, db *sql.DB, query, table string) (map[string][]string, error) {
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indexes := map[string][]string{}
	for rows.Next() {
		var index, column string
		if err := rows.Scan(&index, &column); err != nil {
			return nil, err
		}
		indexes[index] = append(indexes[index], column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return indexes, nil
}

// hasIndexOn reports whether one index covers exactly columns, in any order.
func hasIndexOn(indexes map[string][]string, columns []string) bool {
	want := slices.Sorted(slices.Values(columns))
	for _, cols := range indexes {
		if slices.Equal(slices.Sorted(slices.Values(cols)), want) {
			return true
		}
	}
	return false
}
