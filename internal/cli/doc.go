// Package cli provides the interactive ratingkeeper operator console.
//
// It is a thin REPL over the credential store and the rating repository:
// register and log in, rate items, list the current account's ratings,
// upload a CSV snapshot of all ratings and print operation counters.
// A successful login keeps a signed session token; every rating command
// resolves the account id from it, so an expired token forces a new login.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled.
package cli
