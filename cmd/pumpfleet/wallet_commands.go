package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/pumpfleet/internal/app"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func walletsCommand() *cli.Command {
	return &cli.Command{
		Name:  "wallets",
		Usage: "Wallet set management and funding",
		Subcommands: []*cli.Command{
			createWalletsCommand(),
			createDevCommand(),
			fundWalletsCommand(),
			fundDevCommand(),
			balanceCommand(),
		},
	}
}

func walletFileFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "file",
		Usage: usage + " (defaults to paths.wallets_additional)",
	}
}

func walletFile(c *cli.Context, fallback string) string {
	if f := c.String("file"); f != "" {
		return f
	}
	return fallback
}

func createWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Generate wallets and append them to a wallet set file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Value: "wallet", Usage: "Name prefix, numbering continues from the file"},
			&cli.IntFlag{Name: "count", Required: true, Usage: "Number of wallets to create"},
			walletFileFlag("Wallet set file"),
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			store := wallet.NewStore(walletFile(c, a.Config.Paths.WalletsAdditional), a.Logger.Logger)
			created, err := store.CreateMultiple(c.String("prefix"), c.Int("count"))
			if err != nil {
				return err
			}
			for _, w := range created {
				fmt.Printf("%-16s %s\n", w.Name, w.Address())
			}
			fmt.Printf("Created %d wallets in %s\n", len(created), store.Path())
			return nil
		}),
	}
}

func createDevCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-dev",
		Usage: "Generate a new dev wallet and make it the active dev",
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			w, err := a.Mains.CreateDev(time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("New dev wallet %s: %s\n", w.Name, w.Address())
			return nil
		}),
	}
}

func fundWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fund",
		Usage: "Send SOL from a funder wallet to every wallet in a set",
		Flags: []cli.Flag{
			walletFileFlag("Wallet set to fund"),
			&cli.Float64Flag{Name: "amount", Required: true, Usage: "SOL per wallet"},
			&cli.IntFlag{Name: "last", Usage: "Only fund the last N wallets of the set"},
			&cli.StringFlag{Name: "from", Value: wallet.FunderAdditional, Usage: "Main wallet paying for the transfers"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			from, err := a.Mains.Get(c.String("from"))
			if err != nil {
				return err
			}
			wallets, err := loadWallets(a, walletFile(c, a.Config.Paths.WalletsAdditional), c.Int("last"))
			if err != nil {
				return err
			}

			amount := c.Float64("amount")
			a.Logger.WithWallet(from.Name, from.Address()).Info("Funding wallet set",
				zap.Int("wallets", len(wallets)),
				zap.Float64("sol_each", amount))

			results := a.Funder().FundMany(ctx, from, wallets, uniformAmounts(wallets, amount))
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Printf("%-16s %.4f SOL  FAILED: %v\n", r.Wallet, r.AmountSOL, r.Err)
					continue
				}
				fmt.Printf("%-16s %.4f SOL  %s\n", r.Wallet, r.AmountSOL, r.Signature)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d transfers failed", failed, len(results))
			}
			return nil
		}),
	}
}

func fundDevCommand() *cli.Command {
	return &cli.Command{
		Name:  "fund-dev",
		Usage: "Send SOL from the dev funder to the dev wallet",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "amount", Required: true, Usage: "SOL to send"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			from, err := a.Mains.Get(wallet.FunderDev)
			if err != nil {
				return err
			}
			dev, err := a.Mains.Get(wallet.Dev)
			if err != nil {
				return err
			}
			sig, err := a.Funder().Fund(ctx, from, dev.PublicKey, c.Float64("amount"))
			if err != nil {
				return err
			}
			a.Logger.WithTransaction(sig.String()).Info("Dev wallet funded", zap.String("dev", dev.Address()))
			fmt.Printf("Dev wallet funded: %s\n", sig)
			return printBalances(ctx, a, []*wallet.Wallet{from, dev})
		}),
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Print the SOL balance of every wallet in a set",
		Flags: []cli.Flag{
			walletFileFlag("Wallet set to read"),
			&cli.IntFlag{Name: "last", Usage: "Only the last N wallets of the set"},
			&cli.BoolFlag{Name: "main", Usage: "Show the main wallets (dev and funders) instead of a set"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
			var wallets []*wallet.Wallet
			if c.Bool("main") {
				for _, name := range []string{wallet.Dev, wallet.FunderDev, wallet.FunderAdditional} {
					w, err := a.Mains.Get(name)
					if err != nil {
						return err
					}
					wallets = append(wallets, w)
				}
			} else {
				var err error
				wallets, err = loadWallets(a, walletFile(c, a.Config.Paths.WalletsAdditional), c.Int("last"))
				if err != nil {
					return err
				}
			}
			return printBalances(ctx, a, wallets)
		}),
	}
}

// printBalances fails only when no balance could be read.
func printBalances(ctx context.Context, a *app.App, wallets []*wallet.Wallet) error {
	var total float64
	failed := 0
	for _, b := range wallet.Balances(ctx, a.Chain, wallets) {
		if b.Err != nil {
			failed++
			fmt.Printf("%-16s %-44s  error: %v\n", b.Wallet, b.Address, b.Err)
			continue
		}
		total += b.SOL
		fmt.Printf("%-16s %-44s %14.9f SOL\n", b.Wallet, b.Address, b.SOL)
	}
	fmt.Printf("Total: %.9f SOL\n", total)
	if len(wallets) > 0 && failed == len(wallets) {
		return fmt.Errorf("no balance could be read (%d wallets)", failed)
	}
	return nil
}

// loadWallets reads a wallet set, optionally only its last n entries.
func loadWallets(a *app.App, path string, last int) ([]*wallet.Wallet, error) {
	store := wallet.NewStore(path, a.Logger.Logger)
	var (
		wallets []*wallet.Wallet
		err     error
	)
	if last > 0 {
		wallets, err = store.Last(last)
	} else {
		wallets, err = store.Load()
	}
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no wallets in %s", path)
	}
	return wallets, nil
}

func uniformAmounts(wallets []*wallet.Wallet, sol float64) map[string]float64 {
	amounts := make(map[string]float64, len(wallets))
	for _, w := range wallets {
		amounts[w.Name] = sol
	}
	return amounts
}
