package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/ratingkeeper/internal/auth"
	"github.com/dmitrijs2005/ratingkeeper/internal/common"
	"github.com/dmitrijs2005/ratingkeeper/internal/metrics"
)

// getSimpleText and getPassword are indirections swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

func (a *App) promptCredentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// Register prompts for a username and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.accounts.Register(ctx, userName, string(password))
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Registered %s (account #%d)", acc.UserName, acc.ID))
	return nil
}

// Login authenticates and keeps a session token for the following commands.
// A failed attempt leaves any existing session untouched.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	acc, err := a.accounts.Authenticate(ctx, userName, string(password))
	if err != nil {
		return err
	}

	token, err := auth.GenerateToken(acc.ID, a.secretKey, a.tokenTTL)
	if err != nil {
		return err
	}

	a.token = token
	a.userName = acc.UserName
	printlnFn("Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.token = ""
	a.userName = ""
	printlnFn("Logged out")
	return nil
}

// accountID resolves the session token. An expired token ends the session.
func (a *App) accountID() (int64, error) {
	if !a.isLoggedIn() {
		return 0, errNotLoggedIn
	}
	id, err := auth.AccountIDFromToken(a.token, a.secretKey)
	if err != nil {
		a.token = ""
		a.userName = ""
		return 0, err
	}
	return id, nil
}

// Rate handles "rate <item> <value>".
func (a *App) Rate(ctx context.Context, args []string) error {
	if len(args) != 2 {
		printlnFn("Usage: rate <item> <value>")
		return nil
	}

	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("item id must be an integer: %q", args[0])
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("rating must be a number: %q", args[1])
	}

	accountID, err := a.accountID()
	if err != nil {
		return err
	}

	if err := a.ratings.Upsert(ctx, accountID, itemID, value); err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("Rated item %d: %s", itemID, strconv.FormatFloat(value, 'g', -1, 64)))
	return nil
}

// List prints the current account's ratings ordered by item id.
func (a *App) List(ctx context.Context) error {
	accountID, err := a.accountID()
	if err != nil {
		return err
	}

	rs, err := a.ratings.RatingsFor(ctx, accountID)
	if err != nil {
		return err
	}
	if len(rs) == 0 {
		printlnFn("No ratings yet")
		return nil
	}

	items := make([]int64, 0, len(rs))
	for id := range rs {
		items = append(items, id)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })

	for _, id := range items {
		printlnFn(fmt.Sprintf("%d\t%s", id, strconv.FormatFloat(rs[id], 'g', -1, 64)))
	}
	return nil
}

// Export uploads a snapshot of all ratings and prints its object key.
func (a *App) Export(ctx context.Context) error {
	if _, err := a.accountID(); err != nil {
		return err
	}
	if a.exporter == nil {
		return errors.New("export is not configured")
	}

	key, err := a.exporter.Snapshot(ctx)
	if err != nil {
		return err
	}

	printlnFn("Snapshot uploaded:", key)
	return nil
}

// Stats prints operation counters collected in this process.
func (a *App) Stats(ctx context.Context) error {
	if a.gatherer == nil {
		printlnFn("Metrics are not available")
		return nil
	}

	counts, err := metrics.OperationCounts(a.gatherer)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		printlnFn("No operations recorded")
		return nil
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printlnFn(fmt.Sprintf("%s\t%.0f", k, counts[k]))
	}
	return nil
}
