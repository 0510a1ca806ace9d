package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/ratingkeeper/internal/config"
	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/logging"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/accounts"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/ratings"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ArgonMemoryKiB = 64
	cfg.ArgonIterations = 1
	cfg.ArgonThreads = 1
	return cfg
}

func setupStore(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	ctx := context.Background()

	m, err := repomanager.New(repomanager.DriverSQLite)
	require.NoError(t, err)

	db, err := m.Open(ctx, filepath.Join(t.TempDir(), "ratings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, m.EnsureSchema(ctx, db))
	return db, m
}

var errStorage = errors.New("disk on fire")

type fakeAccounts struct {
	createErr error
	getOut    *models.Account
	getErr    error
	updateErr error
	updated   map[int64]string
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = 1
	return a, nil
}

func (f *fakeAccounts) GetByUserName(context.Context, string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeAccounts) UpdateSecretHash(_ context.Context, id int64, h string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = map[int64]string{}
	}
	f.updated[id] = h
	return nil
}

type fakeRatings struct {
	err error
}

func (f *fakeRatings) Upsert(context.Context, int64, int64, float64) error { return f.err }
func (f *fakeRatings) ListByAccount(context.Context, int64) (map[int64]float64, error) {
	return nil, f.err
}
func (f *fakeRatings) ListAll(context.Context) ([]models.Rating, error) { return nil, f.err }

// fakeRepoManager routes repositories to fakes; Open and EnsureSchema are
// never called by the services.
type fakeRepoManager struct {
	repomanager.RepositoryManager
	a *fakeAccounts
	r *fakeRatings
}

func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return m.a }
func (m *fakeRepoManager) Ratings(dbx.DBTX) ratings.Repository   { return m.r }

func discard() logging.Logger { return logging.Discard() }
