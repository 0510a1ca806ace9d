// Package app wires configuration, storage, services and the operator
// console together. The schema is brought up once in NewApp, before any
// service is constructed.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/ratingkeeper/internal/cli"
	"github.com/dmitrijs2005/ratingkeeper/internal/config"
	"github.com/dmitrijs2005/ratingkeeper/internal/export"
	"github.com/dmitrijs2005/ratingkeeper/internal/logging"
	"github.com/dmitrijs2005/ratingkeeper/internal/metrics"
	"github.com/dmitrijs2005/ratingkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/ratingkeeper/internal/services"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry

	Accounts *services.AccountService
	Ratings  *services.RatingService
	Exporter *export.Exporter
}

// NewApp opens the configured database, ensures the schema and builds the
// services. A schema mismatch is returned wrapped in common.ErrSchemaMismatch
// and must be treated as fatal.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)
	return newApp(ctx, cfg, logger)
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	rm, err := repomanager.New(cfg.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := rm.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info(ctx, "schema ready", "driver", cfg.DatabaseDriver)

	registry := prometheus.NewRegistry()
	mm := metrics.NewManager(metrics.WithPrometheusRegistry(registry))

	as := services.NewAccountService(db, rm, cfg, logger, mm)
	rs := services.NewRatingService(db, rm, logger, mm)

	s3Client, err := export.NewS3Client(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("s3 client init error: %w", err)
	}
	ex := export.NewExporter(rs, s3Client, cfg.S3Bucket, logger, mm)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: registry,
		Accounts: as,
		Ratings:  rs,
		Exporter: ex,
	}, nil
}

// Run starts the console and blocks until the user exits or the process
// receives SIGINT, SIGTERM or SIGQUIT.
func (app *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "starting console")

	console := cli.NewApp(app.Accounts, app.Ratings, app.Exporter, app.registry,
		app.config.SecretKey, app.config.TokenValidityDuration)
	console.Run(ctx)

	app.logger.Info(ctx, "console stopped")
}

// Close releases the connection pool.
func (app *App) Close() error {
	return app.db.Close()
}
