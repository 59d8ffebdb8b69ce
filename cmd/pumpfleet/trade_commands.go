package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/pumpfleet/internal/app"
	"github.com/rovshanmuradov/pumpfleet/internal/orchestrator"
	"github.com/rovshanmuradov/pumpfleet/internal/trade"
	"github.com/urfave/cli/v2"
)

func tradeFlags(fileUsage string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "mint", Usage: "Token mint (defaults to the last created token)"},
		&cli.StringFlag{Name: "file", Usage: fileUsage},
		&cli.IntFlag{Name: "last", Usage: "Only use the last N wallets of the set"},
		&cli.DurationFlag{Name: "delay", Usage: "Minimum spacing between wallets (defaults to orchestrator config)"},
	}
}

func buyCommand() *cli.Command {
	return &cli.Command{
		Name:  "buy",
		Usage: "Buy the token from every wallet with a random amount in [min, max)",
		Flags: append(tradeFlags("Wallet set (defaults to paths.wallets_additional)"),
			&cli.Float64Flag{Name: "min", Required: true, Usage: "Minimum SOL per wallet"},
			&cli.Float64Flag{Name: "max", Required: true, Usage: "Maximum SOL per wallet"},
		),
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			mint, err := a.Mint(c.String("mint"))
			if err != nil {
				return err
			}
			wallets, err := loadWallets(a, walletFile(c, a.Config.Paths.WalletsAdditional), c.Int("last"))
			if err != nil {
				return err
			}
			orch := a.Orchestrator(delayFlag(c, a.Config.Orchestrator.WalletDelay))
			batch, err := orch.RunBuy(ctx, mint, wallets, c.Float64("min"), c.Float64("max"))
			if err != nil {
				return err
			}
			return report(batch)
		}),
	}
}

func sellCommand() *cli.Command {
	return &cli.Command{
		Name:  "sell",
		Usage: "Sell the token from every wallet (token amount or percentage of balance)",
		Flags: append(tradeFlags("Wallet set (defaults to paths.wallets_additional)"),
			&cli.StringFlag{Name: "amount", Value: "100%", Usage: `Tokens per wallet, or a percentage like "50%"`},
		),
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			amount, err := trade.ParseAmountSpec(c.String("amount"))
			if err != nil {
				return err
			}
			mint, err := a.Mint(c.String("mint"))
			if err != nil {
				return err
			}
			wallets, err := loadWallets(a, walletFile(c, a.Config.Paths.WalletsAdditional), c.Int("last"))
			if err != nil {
				return err
			}
			orch := a.Orchestrator(delayFlag(c, a.Config.Orchestrator.WalletDelay))
			batch, err := orch.RunSell(ctx, mint, wallets, amount)
			if err != nil {
				return err
			}
			return report(batch)
		}),
	}
}

func miniBuyCommand() *cli.Command {
	return &cli.Command{
		Name:  "mini-buy",
		Usage: "Buy a fixed small amount from every mini wallet",
		Flags: append(tradeFlags("Wallet set (defaults to paths.wallets_mini)"),
			&cli.Float64Flag{Name: "amount", Usage: "SOL per wallet (defaults to orchestrator.mini_amount)"},
		),
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			mint, err := a.Mint(c.String("mint"))
			if err != nil {
				return err
			}
			wallets, err := loadWallets(a, walletFile(c, a.Config.Paths.WalletsMini), c.Int("last"))
			if err != nil {
				return err
			}
			sol := a.Config.Orchestrator.MiniAmount
			if c.IsSet("amount") {
				sol = c.Float64("amount")
			}
			orch := a.Orchestrator(delayFlag(c, a.Config.Orchestrator.MiniDelay))
			batch, err := orch.RunFixedBuy(ctx, mint, wallets, sol)
			if err != nil {
				return err
			}
			return report(batch)
		}),
	}
}

func delayFlag(c *cli.Context, fallback time.Duration) time.Duration {
	if c.IsSet("delay") {
		return c.Duration("delay")
	}
	return fallback
}

// report prints every wallet result. The command fails only when no
// wallet confirmed.
func report(batch *orchestrator.Batch) error {
	for _, r := range batch.Results {
		switch {
		case r.Err != nil:
			fmt.Printf("✗ %-16s %-12s %v\n", r.Wallet, r.Amount, r.Err)
		case r.Anomaly:
			fmt.Printf("! %-16s %-12s %s (no balance change)\n", r.Wallet, r.Amount, r.Signature)
		default:
			fmt.Printf("✓ %-16s %-12s %s delta %+.4f\n", r.Wallet, r.Amount, r.Signature, r.TokenDelta)
		}
		if r.CloseErr != nil {
			fmt.Printf("  account close failed: %v\n", r.CloseErr)
		}
	}

	s := batch.Summary()
	fmt.Printf("%s %s: %d/%d confirmed, %d anomalies, %d ledger writes, %d accounts closed\n",
		batch.Action, batch.Mint, s.Succeeded, s.Wallets, s.Anomalies, s.LedgerWrites, s.Closures)
	if s.Wallets > 0 && s.Succeeded == 0 {
		return fmt.Errorf("no wallet confirmed (%d failed)", s.Failed)
	}
	return nil
}
