package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rovshanmuradov/pumpfleet/internal/app"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cliApp := &cli.App{
		Name:  "pumpfleet",
		Usage: "Token launch, multi-wallet trading and P&L monitoring for pump.fun",
		Description: `Creates tokens, funds and trades from wallet sets, and follows the
live price of the current token against the purchase ledger.

Trade commands work on the last token in the token list unless --mint is given.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			walletsCommand(),
			tokenCommand(),
			buyCommand(),
			sellCommand(),
			miniBuyCommand(),
			monitorCommand(),
			discoverCommand(),
			ledgerCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML/JSON config file (defaults and env only when empty)",
				EnvVars: []string{"PUMPFLEET_CONFIG"},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type action func(ctx context.Context, c *cli.Context, a *app.App) error

// withApp loads the config, wires the application and cancels ctx on
// SIGINT/SIGTERM. Failures are also written to the log file.
func withApp(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := app.New(c.Context, c.String("config"))
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := app.SignalContext(c.Context, a.Logger.Logger)
		defer cancel()

		name := c.Command.FullName()
		done := a.Logger.TrackPerformance(name)
		err = fn(ctx, c, a)
		done()
		if err != nil {
			a.Logger.LogError("Command failed", err, zap.String("command", name))
		}
		return err
	}
}
