package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/ratingkeeper/internal/common"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/accounts"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/ratings"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) (*SQLiteRepositoryManager, *sql.DB) {
	t.Helper()
	m := &SQLiteRepositoryManager{}
	db, err := m.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return m, db
}

func TestNew(t *testing.T) {
	m, err := New(DriverPostgres)
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, m)

	m, err = New(DriverSQLite)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepositoryManager{}, m)

	_, err = New("oracle")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestFactories_ReturnDialectRepos(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := &PostgresRepositoryManager{}
	assert.IsType(t, &accounts.PostgresRepository{}, pg.Accounts(db))
	assert.IsType(t, &ratings.PostgresRepository{}, pg.Ratings(db))

	lite := &SQLiteRepositoryManager{}
	assert.IsType(t, &accounts.SQLiteRepository{}, lite.Accounts(db))
	assert.IsType(t, &ratings.SQLiteRepository{}, lite.Ratings(db))
}

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ratings.db", want: "file:ratings.db?" + sqlitePragmas},
		{in: "file:ratings.db?mode=rwc", want: "file:ratings.db?mode=rwc&" + sqlitePragmas},
		{in: "file:x.db?_pragma=foreign_keys(1)", want: "file:x.db?_pragma=foreign_keys(1)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withPragmas(tt.in))
	}
}

func TestSQLiteEnsureSchema_CreatesTables(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, m.EnsureSchema(ctx, db))

	for _, table := range []string{"accounts", "ratings"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s must exist", table)
	}
}

func TestSQLiteEnsureSchema_Idempotent(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, m.EnsureSchema(ctx, db))
	_, err := m.Accounts(db).Create(ctx, &models.Account{UserName: "alice", SecretHash: "h"})
	require.NoError(t, err)

	require.NoError(t, m.EnsureSchema(ctx, db))

	got, err := m.Accounts(db).GetByUserName(ctx, "alice")
	require.NoError(t, err, "second run must not drop data")
	assert.Equal(t, "alice", got.UserName)
}

func TestSQLiteEnsureSchema_Concurrent(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	const starters = 8
	var wg sync.WaitGroup
	errs := make(chan error, starters)
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.EnsureSchema(ctx, db)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM goose_db_version WHERE version_id = 1`).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestSQLiteEnsureSchema_IncompatibleTable(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TABLE accounts (id INTEGER PRIMARY KEY, login TEXT)`)
	require.NoError(t, err)

	err = m.EnsureSchema(ctx, db)
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestSQLiteEnsureSchema_AccountsWithoutUniqueUsername(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		secret_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)

	err = m.EnsureSchema(ctx, db)
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.ErrorContains(t, err, "accounts has no unique key on (username)")
}

func TestSQLiteEnsureSchema_RatingsWithoutUniqueKey(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TABLE ratings (
		account_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		value REAL NOT NULL,
		recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)

	err = m.EnsureSchema(ctx, db)
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.ErrorContains(t, err, "ratings has no unique key on (account_id, item_id)")
}

func TestSQLiteEnsureSchema_RatingsWithPartialUniqueIndex(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TABLE ratings (
		account_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		value REAL NOT NULL,
		recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE UNIQUE INDEX ratings_pos ON ratings (account_id, item_id) WHERE value > 0`)
	require.NoError(t, err)

	err = m.EnsureSchema(ctx, db)
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestSQLiteEnsureSchema_SeparateUniqueIndexAccepted(t *testing.T) {
	m, db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TABLE ratings (
		account_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		value REAL NOT NULL,
		recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE UNIQUE INDEX ratings_item_account ON ratings (item_id, account_id)`)
	require.NoError(t, err)

	require.NoError(t, m.EnsureSchema(ctx, db))

	repo := m.Ratings(db)
	require.NoError(t, repo.Upsert(ctx, 1, 42, 4.5))
	require.NoError(t, repo.Upsert(ctx, 1, 42, 5.0))
	got, err := repo.ListByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{42: 5.0}, got)
}

func expectProbes(mock sqlmock.Sqlmock) {
	for _, probe := range schemaProbes {
		mock.ExpectQuery(regexp.QuoteMeta(probe)).
			WillReturnRows(sqlmock.NewRows([]string{"c"}))
	}
}

func TestVerifySchema_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectProbes(mock)
	mock.ExpectQuery("FROM pg_index").WithArgs("accounts").
		WillReturnRows(sqlmock.NewRows([]string{"index", "column"}).
			AddRow("accounts_pkey", "id").
			AddRow("accounts_username_key", "username"))
	mock.ExpectQuery("FROM pg_index").WithArgs("ratings").
		WillReturnRows(sqlmock.NewRows([]string{"index", "column"}).
			AddRow("ratings_account_item_key", "item_id").
			AddRow("ratings_account_item_key", "account_id"))

	require.NoError(t, verifySchema(context.Background(), db, postgresUniqueIndexes))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySchema_PostgresMissingUniqueKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectProbes(mock)
	mock.ExpectQuery("FROM pg_index").WithArgs("accounts").
		WillReturnRows(sqlmock.NewRows([]string{"index", "column"}).
			AddRow("accounts_pkey", "id").
			AddRow("accounts_username_secret", "username").
			AddRow("accounts_username_secret", "secret_hash"))

	err = verifySchema(context.Background(), db, postgresUniqueIndexes)
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.ErrorContains(t, err, "accounts has no unique key on (username)")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySchema_ProbeRowsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(schemaProbes[0])).
		WillReturnRows(sqlmock.NewRows([]string{"c"}).
			AddRow(1).
			RowError(0, errors.New("connection reset")))

	err = verifySchema(context.Background(), db, postgresUniqueIndexes)
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.ErrorContains(t, err, "connection reset")
}

func TestVerifySchema_IndexLookupError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectProbes(mock)
	mock.ExpectQuery("FROM pg_index").WithArgs("accounts").
		WillReturnError(errors.New("permission denied"))

	err = verifySchema(context.Background(), db, postgresUniqueIndexes)
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.ErrorContains(t, err, "permission denied")
}

func TestEnsureSchema_ProviderError(t *testing.T) {
	orig := newProvider
	newProvider = func(goose.Dialect, *sql.DB, fs.FS, ...goose.ProviderOption) (*goose.Provider, error) {
		return nil, errors.New("boom")
	}
	defer func() { newProvider = orig }()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = (&PostgresRepositoryManager{}).EnsureSchema(context.Background(), db)
	require.ErrorContains(t, err, "boom")
	assert.NotErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestSQLiteEnsureSchema_ClosedDB(t *testing.T) {
	m, db := openSQLite(t)
	require.NoError(t, db.Close())

	err := m.EnsureSchema(context.Background(), db)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestSQLiteOpen_CreatesParentDirectory(t *testing.T) {
	m := &SQLiteRepositoryManager{}
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.db")

	db, err := m.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, m.EnsureSchema(context.Background(), db))
	assert.FileExists(t, path)
}
