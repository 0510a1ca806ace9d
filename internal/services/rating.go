package services

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/dmitrijs2005/ratingkeeper/internal/common"
	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/logging"
	"github.com/dmitrijs2005/ratingkeeper/internal/metrics"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/repomanager"
)

// RatingService stores and reads the current rating per (account, item).
// Account existence is not checked; the account id is an opaque key.
type RatingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Manager
}

func NewRatingService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger, mm *metrics.Manager) *RatingService {
	return &RatingService{db: db, repomanager: m, logger: log, metrics: mm}
}

// Upsert records value as the current rating of itemID by accountID,
// replacing any previous one. NaN and infinities are rejected with
// common.ErrInvalidRating.
func (s *RatingService) Upsert(ctx context.Context, accountID, itemID int64, value float64) (err error) {
	start := time.Now()
	defer func() { s.metrics.Since(metrics.OpUpsert, outcomeOf(err), start) }()

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return common.ErrInvalidRating
	}

	err = dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		return s.repomanager.Ratings(conn).Upsert(ctx, accountID, itemID, value)
	})
	if err != nil {
		s.logger.Error(ctx, "rating upsert failed", "account_id", accountID, "item_id", itemID, "error", err)
		return err
	}

	s.logger.Debug(ctx, "rating stored", "account_id", accountID, "item_id", itemID)
	return nil
}

// RatingsFor returns itemID -> value for every current rating of accountID.
// The map is empty, not nil, when there are none.
func (s *RatingService) RatingsFor(ctx context.Context, accountID int64) (out map[int64]float64, err error) {
	start := time.Now()
	defer func() { s.metrics.Since(metrics.OpRatingsFor, outcomeOf(err), start) }()

	err = dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Ratings(conn).ListByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "listing account ratings failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return out, nil
}

// AllRatings returns every current rating across all accounts, read with a
// single statement.
func (s *RatingService) AllRatings(ctx context.Context) (out []models.Rating, err error) {
	start := time.Now()
	defer func() { s.metrics.Since(metrics.OpAllRatings, outcomeOf(err), start) }()

	err = dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		var err error
		out, err = s.repomanager.Ratings(conn).ListAll(ctx)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "listing all ratings failed", "error", err)
		return nil, err
	}
	return out, nil
}
