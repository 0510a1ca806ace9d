package app

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/ratingkeeper/internal/common"
	"github.com/dmitrijs2005/ratingkeeper/internal/config"
	"github.com/dmitrijs2005/ratingkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = filepath.Join(t.TempDir(), "app.db")
	cfg.ArgonMemoryKiB = 64
	cfg.ArgonThreads = 1
	return cfg
}

func TestNewApp_WiresServices(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	acc, err := a.Accounts.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NoError(t, a.Ratings.Upsert(ctx, acc.ID, 42, 0.3))

	rs, err := a.Ratings.RatingsFor(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{42: 0.3}, rs)
	assert.NotNil(t, a.Exporter)
}

func TestNewApp_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := newApp(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	_, err = a.Accounts.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := newApp(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = b.Accounts.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
}

func TestNewApp_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseDriver = "oracle"

	_, err := newApp(context.Background(), cfg, logging.Discard())
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestNewApp_SchemaMismatchIsFatal(t *testing.T) {
	cfg := testConfig(t)

	db, err := sql.Open("sqlite", cfg.DatabaseDSN)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE ratings (id INTEGER PRIMARY KEY, stars INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = newApp(context.Background(), cfg, logging.Discard())
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
}
