// Command ratingkeeper opens the ratings store, brings its schema up and
// starts the interactive operator console.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/ratingkeeper/internal/app"
	"github.com/dmitrijs2005/ratingkeeper/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	ctx := context.Background()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Run(ctx)
}
