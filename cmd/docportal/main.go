// Command docportal ingests documents and answers questions about them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docportal/internal/adapters/driving/cli"
	"github.com/custodia-labs/docportal/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal; anything else is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: reading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var container *app.Container
	defer func() {
		if container != nil {
			container.Close() //nolint:errcheck // exiting anyway
		}
	}()

	cliApp := &cli.App{
		Version: version,
		Setup: func(a *cli.App, verbose bool) error {
			c, err := app.Build(ctx, app.Options{
				ConfigDir:  os.Getenv("DOCPORTAL_CONFIG_DIR"),
				ConfigFile: os.Getenv("DOCPORTAL_CONFIG_FILE"),
				Verbose:    verbose,
			})
			if err != nil {
				return err
			}
			container = c
			c.Bind(a)
			return nil
		},
	}

	if err := cli.Execute(ctx, cliApp); err != nil {
		return 1
	}
	return 0
}
