package main

import (
	"context"
	"fmt"

	"github.com/rovshanmuradov/pumpfleet/internal/app"
	"github.com/rovshanmuradov/pumpfleet/internal/discovery"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func discoverCommand() *cli.Command {
	common := []cli.Flag{
		&cli.StringFlag{Name: "filter", Usage: "jq expression; entries are kept when it yields true"},
		&cli.StringFlag{Name: "schedule", Usage: `Cron spec or "@every 10m"; runs until interrupted`},
	}
	return &cli.Command{
		Name:  "discover",
		Usage: "Fetch and filter pump tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "ranked",
				Usage: "Save the top tokens by market cap",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Value: discovery.DefaultRankLimit, Usage: "Number of ranked tokens to fetch"},
				}, common...),
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					return discover(ctx, c, a, func(ctx context.Context, svc *discovery.Service) error {
						entries, err := svc.Ranked(ctx, c.Int("limit"))
						if err != nil {
							return err
						}
						fmt.Printf("Saved %d ranked tokens to %s\n", len(entries), a.Config.Paths.RankedTokens)
						return nil
					})
				}),
			},
			{
				Name:  "parse",
				Usage: "Save tokens whose market cap is inside [min, max]",
				Flags: append([]cli.Flag{
					&cli.Float64Flag{Name: "min", Usage: "Minimum market cap (defaults to discovery.min_market_cap)"},
					&cli.Float64Flag{Name: "max", Usage: "Maximum market cap (defaults to discovery.max_market_cap)"},
				}, common...),
				Action: withApp(func(ctx context.Context, c *cli.Context, a *app.App) error {
					if c.IsSet("min") {
						a.Config.Discovery.MinMarketCap = c.Float64("min")
					}
					if c.IsSet("max") {
						a.Config.Discovery.MaxMarketCap = c.Float64("max")
					}
					return discover(ctx, c, a, func(ctx context.Context, svc *discovery.Service) error {
						tokens, err := svc.Parse(ctx)
						if err != nil {
							return err
						}
						for _, t := range tokens {
							fmt.Printf("%-10s %-44s %12.0f  %s\n", t.Symbol, t.Mint, t.MarketCap, t.ChartLink)
						}
						fmt.Printf("Saved %d tokens to %s\n", len(tokens), a.Config.Paths.ParsedTokens)
						return nil
					})
				}),
			},
		},
	}
}

// discover runs job once, then on the schedule if one is set.
func discover(ctx context.Context, c *cli.Context, a *app.App, job func(context.Context, *discovery.Service) error) error {
	cfg := a.Config.Discovery
	expr := cfg.Filter
	if c.IsSet("filter") {
		expr = c.String("filter")
	}
	filter, err := discovery.CompileFilter(expr)
	if err != nil {
		return err
	}

	logger := a.Logger.WithComponent("discovery")
	svc, err := discovery.NewService(discovery.Config{
		Client:       discovery.NewClient(cfg.RankURL, cfg.TokensURL, logger),
		Filter:       filter,
		ParsedPath:   a.Config.Paths.ParsedTokens,
		RankedPath:   a.Config.Paths.RankedTokens,
		MinMarketCap: cfg.MinMarketCap,
		MaxMarketCap: cfg.MaxMarketCap,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error { return job(ctx, svc) }
	if err := run(ctx); err != nil {
		return err
	}

	spec := cfg.Schedule
	if c.IsSet("schedule") {
		spec = c.String("schedule")
	}
	if spec == "" {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return discovery.Schedule(gctx, spec, logger, run) })
	g.Go(func() error { return a.ServeMetrics(gctx) })
	return g.Wait()
}
