package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/ratingkeeper/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

var errNotLoggedIn = errors.New("not logged in")

// AccountService is the credential store as seen by the console.
type AccountService interface {
	Register(ctx context.Context, username, secret string) (*models.Account, error)
	Authenticate(ctx context.Context, username, secret string) (*models.Account, error)
}

// RatingService is the rating repository as seen by the console.
type RatingService interface {
	Upsert(ctx context.Context, accountID, itemID int64, value float64) error
	RatingsFor(ctx context.Context, accountID int64) (map[int64]float64, error)
}

// Snapshotter uploads a ratings snapshot and returns its object key.
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

type App struct {
	accounts  AccountService
	ratings   RatingService
	exporter  Snapshotter
	gatherer  prometheus.Gatherer
	secretKey []byte
	tokenTTL  time.Duration

	token    string
	userName string

	reader *bufio.Reader
	// input, when set, is closed on cancellation to unblock a pending read.
	input io.Closer
	out   io.Writer
}

// NewApp wires a console reading from stdin. gatherer may be nil, in which
// case "stats" reports that metrics are unavailable.
func NewApp(as AccountService, rs RatingService, ex Snapshotter, g prometheus.Gatherer, secretKey string, tokenTTL time.Duration) *App {
	return &App{
		accounts:  as,
		ratings:   rs,
		exporter:  ex,
		gatherer:  g,
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
	}
}

// Run blocks in the REPL until the user exits or ctx is cancelled.
//
// A read from os.Stdin cannot be interrupted, so after cancellation the REPL
// goroutine stays blocked until the process exits. When input is set it is
// closed instead and Run waits for the REPL to return.
func (a *App) Run(ctx context.Context) {
	printlnFn("ratingkeeper console (type 'help' for commands)")

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.status, a.reader)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if a.input != nil {
			_ = a.input.Close()
			<-done
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.userName
	}
	return "(anonymous)"
}
