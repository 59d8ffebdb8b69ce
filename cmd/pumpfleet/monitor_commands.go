package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rovshanmuradov/pumpfleet/internal/app"
	"github.com/rovshanmuradov/pumpfleet/internal/fiat"
	"github.com/rovshanmuradov/pumpfleet/internal/monitor"
	"github.com/rovshanmuradov/pumpfleet/internal/recorder"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Follow the token price and show P&L against the purchase ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mint", Usage: "Token mint (defaults to the last created token)"},
			&cli.DurationFlag{Name: "refresh", Value: time.Second, Usage: "Minimum interval between console lines"},
		},
		Action: withApp(runMonitor),
		Subcommands: []*cli.Command{
			{
				Name:  "history",
				Usage: "Print recorded price snapshots (needs recorder.sqlite_path)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mint", Usage: "Token mint (defaults to the last created token)"},
					&cli.DurationFlag{Name: "since", Value: time.Hour, Usage: "How far back to read"},
				},
				Action: withApp(runHistory),
			},
		},
	}
}

func runHistory(ctx context.Context, c *cli.Context, a *app.App) error {
	path := a.Config.Recorder.SQLitePath
	if path == "" {
		return errors.New("recorder.sqlite_path is not configured")
	}
	mint, err := a.Mint(c.String("mint"))
	if err != nil {
		return err
	}
	rec, err := recorder.NewSQLiteRecorder(path, a.Logger.Logger)
	if err != nil {
		return err
	}
	defer rec.Close()

	points, err := rec.History(ctx, mint.String(), time.Now().Add(-c.Duration("since")))
	if err != nil {
		return err
	}
	printHistory(os.Stdout, points)
	return nil
}

func printHistory(w io.Writer, points []recorder.Point) {
	for _, p := range points {
		fiat := "n/a"
		if p.PriceFiat != nil {
			fiat = fmt.Sprintf("$%.8f", *p.PriceFiat)
		}
		fmt.Fprintf(w, "%s  %.10f SOL  %-14s  profit %+.6f SOL\n",
			p.Time.Local().Format("2006-01-02 15:04:05"), p.PriceSol, fiat, p.Profit)
	}
	fmt.Fprintf(w, "%d snapshots\n", len(points))
}

func runMonitor(ctx context.Context, c *cli.Context, a *app.App) error {
	mint, err := a.Mint(c.String("mint"))
	if err != nil {
		return err
	}
	cfg := a.Config
	logger := a.Logger.WithOperation("monitor")

	rates, err := fiat.NewClient(fiat.Config{
		URL:               cfg.Fiat.URL,
		RequestsPerSecond: cfg.Fiat.RequestsPerSecond,
		CacheTTL:          cfg.Fiat.CacheTTL,
	}, logger)
	if err != nil {
		return err
	}
	rec, err := recorder.Open(cfg.Recorder.SQLitePath, logger)
	if err != nil {
		return err
	}
	a.OnClose("recorder", rec.Close)

	throttler := monitor.NewThrottler(c.Duration("refresh"), func(s monitor.Snapshot) {
		fmt.Println(monitor.Render(s))
	})

	var alerts *monitor.AlertManager
	if ac := alertConfig(a); ac.Enabled() {
		alerts = monitor.NewAlertManager(ac, logger)
	}

	pm, err := monitor.New(monitor.Config{
		URL:               cfg.Feed.URL,
		Mint:              mint.String(),
		ReconnectDelay:    cfg.Feed.ReconnectDelay,
		MaxReconnectDelay: cfg.Feed.MaxReconnectDelay,
		Ledger:            a.Ledger,
		Fiat:              rates,
		Recorder:          rec,
		Publisher:         a.Publisher,
		Observer:          a.Metrics,
		Alerts:            alerts,
		Logger:            logger,
		OnUpdate:          throttler.Offer,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := pm.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error { return a.ServeMetrics(gctx) })
	g.Go(func() error {
		ticker := time.NewTicker(c.Duration("refresh"))
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				throttler.Flush()
				return nil
			case <-ticker.C:
				throttler.Flush()
			}
		}
	})

	err = g.Wait()
	sent, dropped := throttler.Stats()
	fmt.Printf("Monitoring stopped: %d updates shown, %d superseded\n", sent, dropped)
	return err
}

func alertConfig(a *app.App) monitor.AlertConfig {
	c := a.Config.Alerts
	return monitor.AlertConfig{
		ProfitTargetPercent: c.ProfitTargetPercent,
		LossLimitPercent:    c.LossLimitPercent,
		LargeTradeSol:       c.LargeTradeSol,
		Cooldown:            c.Cooldown,
	}
}
