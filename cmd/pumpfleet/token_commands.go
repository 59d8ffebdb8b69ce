package main

import (
	"context"
	"fmt"

	"github.com/rovshanmuradov/pumpfleet/internal/app"
	"github.com/rovshanmuradov/pumpfleet/internal/token"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Token management",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a token from the dev wallet with an initial buy",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "initial-buy", Required: true, Usage: "SOL the dev wallet buys at creation"},
					&cli.StringFlag{Name: "metadata", Usage: "Token metadata YAML (defaults to paths.token_config)"},
				},
				Action: withApp(createToken),
			},
			{
				Name:  "current",
				Usage: "Print the token trade commands work on",
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					rec, err := a.Tokens.Current()
					if err != nil {
						return err
					}
					fmt.Printf("%s  %s (%s)  created %s\n", rec.Mint, rec.Name, rec.Symbol, rec.CreatedAt.Format("2006-01-02 15:04:05"))
					return nil
				}),
			},
		},
	}
}

func createToken(ctx context.Context, c *cli.Context, a *app.App) error {
	path := c.String("metadata")
	if path == "" {
		path = a.Config.Paths.TokenConfig
	}
	meta, err := token.LoadMetadataConfig(path)
	if err != nil {
		return err
	}
	dev, err := a.Mains.Get(wallet.Dev)
	if err != nil {
		return err
	}

	rec, err := a.Creator().Create(ctx, dev, meta, c.Float64("initial-buy"))
	if err != nil {
		return err
	}
	a.Logger.WithToken(rec.Mint).Info("Token ready for trading",
		zap.String("symbol", rec.Symbol),
		zap.Float64("initial_buy_sol", c.Float64("initial-buy")))
	fmt.Printf("Token created: %s (%s)\n", rec.Mint, rec.Symbol)
	fmt.Printf("Transaction:   %s\n", rec.TxSignature)
	return nil
}
