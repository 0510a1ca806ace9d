// Package services holds the credential store and the rating repository
// operations exposed to callers. Each operation checks its own connection out
// of the shared pool; services never call each other.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ratingkeeper/internal/common"
	"github.com/dmitrijs2005/ratingkeeper/internal/config"
	"github.com/dmitrijs2005/ratingkeeper/internal/cryptox"
	"github.com/dmitrijs2005/ratingkeeper/internal/dbx"
	"github.com/dmitrijs2005/ratingkeeper/internal/logging"
	"github.com/dmitrijs2005/ratingkeeper/internal/metrics"
	"github.com/dmitrijs2005/ratingkeeper/internal/models"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/repomanager"
)

// AccountService registers accounts and authenticates them by secret.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.Hasher
	logger      logging.Logger
	metrics     *metrics.Manager

	// verified against for unknown usernames so both paths cost one argon2id run
	dummyHash string
}

// NewAccountService builds the service; argon2id costs come from cfg.
// mm may be nil.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, mm *metrics.Manager) *AccountService {
	hasher := cryptox.NewHasher(cryptox.Params{
		Memory:  cfg.ArgonMemoryKiB,
		Time:    cfg.ArgonIterations,
		Threads: cfg.ArgonThreads,
	})
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		logger:      log,
		metrics:     mm,
		dummyHash:   hasher.Hash(common.GenerateRandByteArray(32)),
	}
}

// Register creates an account. A taken username yields
// common.ErrDuplicateUsername and leaves the store untouched. The returned
// account never carries the digest.
func (s *AccountService) Register(ctx context.Context, username, secret string) (acc *models.Account, err error) {
	start := time.Now()
	defer func() { s.metrics.Since(metrics.OpRegister, outcomeOf(err), start) }()

	if username == "" || secret == "" {
		return nil, common.ErrInvalidCredentials
	}

	account := &models.Account{
		UserName:   username,
		SecretHash: s.hasher.Hash([]byte(secret)),
	}

	err = dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		var err error
		account, err = s.repomanager.Accounts(conn).Create(ctx, account)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) {
			s.logger.Info(ctx, "registration rejected: username taken", "username", username)
			return nil, err
		}
		s.logger.Error(ctx, "registration failed", "username", username, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID, "username", username)
	return public(account), nil
}

// Authenticate returns the account whose username and secret both match.
// An unknown username and a wrong secret are indistinguishable to the caller:
// both yield common.ErrNoMatch after the same amount of hashing work.
func (s *AccountService) Authenticate(ctx context.Context, username, secret string) (acc *models.Account, err error) {
	start := time.Now()
	defer func() { s.metrics.Since(metrics.OpAuthenticate, outcomeOf(err), start) }()

	if username == "" || secret == "" {
		return nil, common.ErrInvalidCredentials
	}

	var account *models.Account
	err = dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		var err error
		account, err = s.repomanager.Accounts(conn).GetByUserName(ctx, username)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(s.dummyHash, []byte(secret))
			s.logger.Warn(ctx, "authentication failed", "username", username)
			return nil, common.ErrNoMatch
		}
		s.logger.Error(ctx, "authentication lookup failed", "username", username, "error", err)
		return nil, err
	}

	ok, err := s.hasher.Verify(account.SecretHash, []byte(secret))
	if err != nil {
		s.logger.Error(ctx, "stored digest unreadable", "account_id", account.ID, "error", err)
		return nil, fmt.Errorf("verify secret: %w", err)
	}
	if !ok {
		s.logger.Warn(ctx, "authentication failed", "username", username)
		return nil, common.ErrNoMatch
	}

	if s.hasher.NeedsRehash(account.SecretHash) {
		s.rehash(ctx, account.ID, secret)
	}

	s.logger.Debug(ctx, "account authenticated", "account_id", account.ID)
	return public(account), nil
}

// rehash upgrades a legacy or outdated digest. Failure only costs the upgrade.
func (s *AccountService) rehash(ctx context.Context, id int64, secret string) {
	digest := s.hasher.Hash([]byte(secret))
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		return s.repomanager.Accounts(conn).UpdateSecretHash(ctx, id, digest)
	})
	if err != nil {
		s.logger.Warn(ctx, "secret rehash failed", "account_id", id, "error", err)
		return
	}
	s.logger.Info(ctx, "secret digest upgraded", "account_id", id)
}

func public(a *models.Account) *models.Account {
	return &models.Account{ID: a.ID, UserName: a.UserName, CreatedAt: a.CreatedAt}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, common.ErrDuplicateUsername):
		return metrics.OutcomeDuplicate
	case errors.Is(err, common.ErrNoMatch):
		return metrics.OutcomeNoMatch
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrInvalidRating):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
