// internal/trade/executor.go
package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfleet/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfleet/internal/tradeapi"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"go.uber.org/zap"
)

type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

var (
	ErrNotConfirmed  = errors.New("transaction not confirmed")
	ErrNothingToSell = errors.New("resolved sell amount is zero")
)

type TradeAPI interface {
	BuildTransaction(ctx context.Context, req tradeapi.TradeRequest) ([]byte, error)
}

type Broadcaster interface {
	SendSerialized(ctx context.Context, blob []byte, signers ...solana.PrivateKey) (solana.Signature, error)
}

type BalanceReader interface {
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (solbc.TokenBalance, error)
}

type Confirmer interface {
	AwaitConfirmation(ctx context.Context, signature solana.Signature) bool
}

type Observer interface {
	RecordTrade(action, status string, duration time.Duration)
	RecordDeltaAnomaly()
}

// Settings are the per-process trade parameters passed to the trade API.
type Settings struct {
	Slippage    int
	PriorityFee float64
	Pool        string
}

// Result of one trade. Signature is set only for a confirmed transaction.
type Result struct {
	Signature        solana.Signature
	Confirmed        bool
	Amount           float64 // SOL for buys, tokens for sells
	TokenDelta       float64 // whole tokens, negative for sells
	RawDelta         int64
	PreBalance       solbc.TokenBalance
	PostBalance      solbc.TokenBalance
	PostBalanceKnown bool
}

// Executor runs a single trade end to end. It keeps no state between calls.
type Executor struct {
	api       TradeAPI
	sender    Broadcaster
	balances  BalanceReader
	confirmer Confirmer
	settings  Settings
	observer  Observer
	logger    *zap.Logger
}

type ExecutorConfig struct {
	API       TradeAPI
	Sender    Broadcaster
	Balances  BalanceReader
	Confirmer Confirmer
	Settings  Settings
	Observer  Observer
	Logger    *zap.Logger
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	return &Executor{
		api:       cfg.API,
		sender:    cfg.Sender,
		balances:  cfg.Balances,
		confirmer: cfg.Confirmer,
		settings:  cfg.Settings,
		observer:  cfg.Observer,
		logger:    cfg.Logger.Named("trade-executor"),
	}
}

// ExecuteTrade submits one buy or sell for w and waits for confirmation.
// Failures are returned as errors and never retried here.
func (e *Executor) ExecuteTrade(ctx context.Context, w *wallet.Wallet, mint solana.PublicKey, amount AmountSpec, action Action) (Result, error) {
	start := time.Now()
	logger := e.logger.With(
		zap.String("wallet", w.Name),
		zap.String("wallet_address", w.Address()),
		zap.String("mint", mint.String()),
		zap.String("action", string(action)),
		zap.Stringer("amount", amount))

	res, err := e.execute(ctx, logger, w, mint, amount, action)

	status := "confirmed"
	switch {
	case errors.Is(err, ErrNotConfirmed):
		status = "unconfirmed"
	case err != nil:
		status = "failed"
	}
	if e.observer != nil {
		e.observer.RecordTrade(string(action), status, time.Since(start))
	}
	if err != nil {
		logger.Error("❌ Trade failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	}
	return res, err
}

func (e *Executor) execute(ctx context.Context, logger *zap.Logger, w *wallet.Wallet, mint solana.PublicKey, amount AmountSpec, action Action) (Result, error) {
	var res Result

	pre, err := e.balances.TokenBalance(ctx, w.PublicKey, mint)
	if err != nil {
		return res, fmt.Errorf("read token balance: %w", err)
	}
	res.PreBalance = pre

	req := tradeapi.TradeRequest{
		PublicKey:   w.Address(),
		Mint:        mint.String(),
		Slippage:    e.settings.Slippage,
		PriorityFee: e.settings.PriorityFee,
		Pool:        e.settings.Pool,
	}

	switch action {
	case Buy:
		if amount.Kind() != Absolute {
			return res, fmt.Errorf("%w: buys take an absolute SOL amount, got %s", ErrInvalidAmount, amount)
		}
		req.Action = tradeapi.ActionBuy
		req.Amount = amount.Quantity()
		req.DenominatedInSol = "true"
	case Sell:
		raw, err := amount.ResolveTokens(pre)
		if err != nil {
			return res, err
		}
		if raw == 0 {
			return res, ErrNothingToSell
		}
		req.Action = tradeapi.ActionSell
		req.Amount = solbc.RawToUI(int64(raw), pre.Decimals)
		req.DenominatedInSol = "false"
		logger.Debug("Sell amount resolved",
			zap.Float64("balance", pre.UI()),
			zap.Uint64("balance_raw", pre.Raw),
			zap.Uint64("sell_raw", raw))
	default:
		return res, fmt.Errorf("unknown action %q", action)
	}
	res.Amount = req.Amount

	logger.Info("🚀 Submitting trade", zap.Float64("request_amount", req.Amount))

	blob, err := e.api.BuildTransaction(ctx, req)
	if err != nil {
		return res, fmt.Errorf("build transaction: %w", err)
	}
	sig, err := e.sender.SendSerialized(ctx, blob, w.PrivateKey)
	if err != nil {
		return res, fmt.Errorf("broadcast: %w", err)
	}
	logger = logger.With(zap.String("signature", sig.String()))

	if !e.confirmer.AwaitConfirmation(ctx, sig) {
		return res, fmt.Errorf("%w: %s", ErrNotConfirmed, sig)
	}
	res.Signature = sig
	res.Confirmed = true

	post, err := e.balances.TokenBalance(ctx, w.PublicKey, mint)
	if err != nil {
		logger.Warn("Post-trade balance unavailable, delta unknown", zap.Error(err))
	} else {
		res.PostBalance = post
		res.PostBalanceKnown = true
		decimals := post.Decimals
		if decimals == 0 {
			decimals = pre.Decimals
		}
		res.RawDelta = int64(post.Raw) - int64(pre.Raw)
		res.TokenDelta = solbc.RawToUI(res.RawDelta, decimals)
	}

	if action == Buy && res.RawDelta <= 0 {
		logger.Warn("⚠️ Confirmed buy without positive token delta",
			zap.Int64("raw_delta", res.RawDelta),
			zap.Bool("post_balance_known", res.PostBalanceKnown))
		if e.observer != nil {
			e.observer.RecordDeltaAnomaly()
		}
	}

	logger.Info("✅ Trade confirmed",
		zap.Float64("token_delta", res.TokenDelta),
		zap.Uint64("post_balance_raw", res.PostBalance.Raw))
	return res, nil
}
