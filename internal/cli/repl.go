package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ratingkeeper/internal/common"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Rate(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Export(ctx context.Context) error
	Stats(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF, on "exit" or "quit", or when ctx is done.
//
//	Not logged in:  help, register, login, stats, exit
//	Logged in:      help, rate <item> <value>, list, export, stats, logout, exit
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("rk %s > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: rate <item> <value>, (l)ist, export, stats, logout, exit")
			} else {
				printlnFn("Available commands: register, login, stats, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "rate":
			cmdErr = a.Rate(ctx, args)

		case "l", "list":
			cmdErr = a.List(ctx)

		case "export":
			cmdErr = a.Export(ctx)

		case "stats":
			cmdErr = a.Stats(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}
	}
}

// describe turns known sentinel errors into operator-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		return "username already taken"
	case errors.Is(err, common.ErrNoMatch):
		return "unknown username or wrong password"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "username and password must not be empty"
	case errors.Is(err, common.ErrInvalidRating):
		return "rating must be a finite number"
	case errors.Is(err, common.ErrTokenExpired):
		return "session expired, please log in again"
	case errors.Is(err, errNotLoggedIn), errors.Is(err, common.ErrInvalidToken):
		return "please log in first"
	}
	return err.Error()
}
