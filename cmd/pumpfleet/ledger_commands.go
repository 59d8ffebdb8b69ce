package main

import (
	"context"
	"fmt"

	"github.com/rovshanmuradov/pumpfleet/internal/app"
	"github.com/rovshanmuradov/pumpfleet/internal/export"
	"github.com/urfave/cli/v2"
)

func ledgerCommand() *cli.Command {
	filterFlags := []cli.Flag{
		&cli.StringFlag{Name: "mint", Usage: "Only purchases of this mint"},
		&cli.StringFlag{Name: "wallet", Usage: "Only purchases by this wallet address"},
		&cli.TimestampFlag{Name: "since", Layout: "2006-01-02", Usage: "Start date (YYYY-MM-DD)"},
	}
	return &cli.Command{
		Name:  "ledger",
		Usage: "Purchase ledger reports",
		Subcommands: []*cli.Command{
			{
				Name:  "summary",
				Usage: "Print totals of the purchase ledger",
				Flags: filterFlags,
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					records, err := a.Ledger.List(ctx, c.String("mint"))
					if err != nil {
						return err
					}
					records = export.Filter(records, ledgerOptions(c))
					s := export.Summarize(records)
					fmt.Printf("Purchases: %d (tokens %d, wallets %d)\n", s.Purchases, s.UniqueTokens, s.UniqueWallets)
					fmt.Printf("Spent:     %.6f SOL\n", s.TotalSpent)
					fmt.Printf("Tokens:    %.2f (avg price %.10f SOL)\n", s.TotalTokens, s.AvgUnitPrice)
					for _, d := range export.DailyBreakdown(records) {
						fmt.Printf("  %s  %3d buys  %.6f SOL\n", d.Date, d.Purchases, d.Spent)
					}
					return nil
				}),
			},
			{
				Name:  "export",
				Usage: "Write the purchase ledger to a CSV or JSON file",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "format", Value: string(export.FormatCSV), Usage: "csv or json"},
					&cli.StringFlag{Name: "out", Value: "exports", Usage: "Output directory"},
				}, filterFlags...),
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					format, err := export.ParseFormat(c.String("format"))
					if err != nil {
						return err
					}
					records, err := a.Ledger.List(ctx, c.String("mint"))
					if err != nil {
						return err
					}
					opts := ledgerOptions(c)
					opts.Format = format
					opts.OutputDir = c.String("out")

					path, err := export.NewExporter(a.Logger.Logger).Export(records, opts)
					if err != nil {
						return err
					}
					fmt.Printf("Exported to %s\n", path)
					return nil
				}),
			},
		},
	}
}

func ledgerOptions(c *cli.Context) export.Options {
	opts := export.Options{Mint: c.String("mint"), Wallet: c.String("wallet")}
	if since := c.Timestamp("since"); since != nil {
		opts.StartTime = *since
	}
	return opts
}

