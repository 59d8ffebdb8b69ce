// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfleet/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfleet/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/pumpfleet/internal/config"
	"github.com/rovshanmuradov/pumpfleet/internal/events"
	"github.com/rovshanmuradov/pumpfleet/internal/ledger"
	"github.com/rovshanmuradov/pumpfleet/internal/orchestrator"
	"github.com/rovshanmuradov/pumpfleet/internal/token"
	"github.com/rovshanmuradov/pumpfleet/internal/trade"
	"github.com/rovshanmuradov/pumpfleet/internal/tradeapi"
	applogger "github.com/rovshanmuradov/pumpfleet/internal/utils/logger"
	"github.com/rovshanmuradov/pumpfleet/internal/utils/metrics"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"go.uber.org/zap"
)

// App holds the process-wide dependency graph built from the config file.
type App struct {
	Config    *config.Config
	Logger    *applogger.Logger
	Metrics   *metrics.Collector
	Chain     *solbc.Client
	Confirmer *transaction.Monitor
	TradeAPI  *tradeapi.Client
	Executor  *trade.Executor
	Ledger    ledger.Store
	Publisher events.Publisher
	Tokens    *token.Registry
	Mains     *wallet.MainWallets

	shutdown *ShutdownHandler
}

// New loads the config at path and wires every shared component.
// Close releases what New opened.
func New(ctx context.Context, path string) (*App, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	logCfg := applogger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := applogger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return build(ctx, cfg, log)
}

func build(ctx context.Context, cfg *config.Config, log *applogger.Logger) (*App, error) {
	zl := log.Logger
	a := &App{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics.NewCollector(nil),
		shutdown: NewShutdownHandler(zl, 10*time.Second),
	}
	a.shutdown.AddFunc("logger", log.Sync)

	a.Chain = solbc.NewClient(cfg.RPCURL, solbc.TransactionOptions{
		SkipPreflight:       cfg.TradeAPI.SkipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	}, zl)
	a.Confirmer = transaction.NewMonitor(a.Chain, zl, transaction.Config{
		Attempts: cfg.Confirmation.Attempts,
		Interval: cfg.Confirmation.Interval,
	}, a.Metrics)

	a.TradeAPI = tradeapi.NewClient(tradeapi.Config{
		BaseURL:     cfg.TradeAPI.URL,
		MetadataURL: cfg.TradeAPI.MetadataURL,
		Retries:     cfg.TradeAPI.Retries,
		RetryDelay:  cfg.TradeAPI.RetryDelay,
		Timeout:     cfg.TradeAPI.Timeout,
	}, zl, a.Metrics)

	a.Executor = trade.NewExecutor(trade.ExecutorConfig{
		API:       a.TradeAPI,
		Sender:    a.Chain,
		Balances:  a.Chain,
		Confirmer: a.Confirmer,
		Settings:  a.tradeSettings(),
		Observer:  a.Metrics,
		Logger:    zl,
	})

	store, err := openLedger(ctx, cfg, zl)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Ledger = store
	if c, ok := store.(interface{ Close() error }); ok {
		a.shutdown.Add("ledger", CloseFunc(c.Close))
	}

	a.Publisher = events.Nop{}
	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, zl)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Publisher = pub
		a.shutdown.Add("nats", pub)
	}

	a.Tokens = token.NewRegistry(cfg.Paths.TokenList, zl)
	a.Mains = wallet.NewMainWallets(cfg.Paths.WalletsConfig, zl)
	return a, nil
}

func openLedger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		return ledger.NewPostgresStore(ctx, cfg.Ledger.PostgresURL, logger)
	case config.LedgerBackendJSON, "":
		return ledger.NewJSONFileStore(cfg.Paths.Ledger, logger), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func (a *App) tradeSettings() trade.Settings {
	return trade.Settings{
		Slippage:    a.Config.TradeAPI.Slippage,
		PriorityFee: a.Config.TradeAPI.PriorityFee,
		Pool:        a.Config.TradeAPI.Pool,
	}
}

// Close shuts registered services down in reverse order.
func (a *App) Close() error {
	return a.shutdown.Shutdown()
}

// OnClose registers an extra resource opened by a command.
func (a *App) OnClose(name string, fn func() error) {
	a.shutdown.AddFunc(name, fn)
}

// Orchestrator builds a wallet orchestrator spaced by delay.
func (a *App) Orchestrator(delay time.Duration) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		Trader:      a.Executor,
		Ledger:      a.Ledger,
		Closer:      a.Chain,
		Confirmer:   a.Confirmer,
		Publisher:   a.Publisher,
		Observer:    a.Metrics,
		Logger:      a.Logger.Logger,
		WalletDelay: delay,
		Jitter:      a.Config.Orchestrator.Jitter,
	})
}

func (a *App) Funder() *wallet.Funder {
	return wallet.NewFunder(a.Chain, a.Confirmer, a.Logger.Logger)
}

func (a *App) Creator() *token.Creator {
	s := a.tradeSettings()
	return token.NewCreator(token.CreatorConfig{
		API:         a.TradeAPI,
		Sender:      a.Chain,
		Confirmer:   a.Confirmer,
		Registry:    a.Tokens,
		Publisher:   a.Publisher,
		Slippage:    s.Slippage,
		PriorityFee: s.PriorityFee,
		Pool:        s.Pool,
		Logger:      a.Logger.Logger,
	})
}

// Mint returns override when set, otherwise the newest registry token.
func (a *App) Mint(override string) (solana.PublicKey, error) {
	if override != "" {
		mint, err := solana.PublicKeyFromBase58(override)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("invalid mint %q: %w", override, err)
		}
		return mint, nil
	}
	return a.Tokens.CurrentMint()
}

// ServeMetrics exposes /metrics until ctx is done. An empty listen
// address disables the server.
func (a *App) ServeMetrics(ctx context.Context) error {
	addr := a.Config.Metrics.ListenAddr
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.Logger.Info("Metrics server started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
