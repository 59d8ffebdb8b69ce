// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rovshanmuradov/pumpfleet/internal/events"
	"github.com/rovshanmuradov/pumpfleet/internal/ledger"
	"github.com/rovshanmuradov/pumpfleet/internal/trade"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrInvalidRange = errors.New("invalid amount range")

type Trader interface {
	ExecuteTrade(ctx context.Context, w *wallet.Wallet, mint solana.PublicKey, amount trade.AmountSpec, action trade.Action) (trade.Result, error)
}

// AccountCloser reclaims rent from an emptied token account.
type AccountCloser interface {
	CloseTokenAccount(ctx context.Context, owner solana.PrivateKey, mint solana.PublicKey) (solana.Signature, error)
}

type Confirmer interface {
	AwaitConfirmation(ctx context.Context, signature solana.Signature) bool
}

type Observer interface {
	RecordLedgerWrite(err error)
	RecordAccountClosure(err error)
}

type Config struct {
	Trader    Trader
	Ledger    ledger.Store
	Closer    AccountCloser
	Confirmer Confirmer // optional, confirms account closures
	Publisher events.Publisher
	Observer  Observer
	Logger    *zap.Logger

	// WalletDelay spaces consecutive wallets; Jitter adds a random [0, Jitter) on top.
	WalletDelay time.Duration
	Jitter      time.Duration

	// Rand returns a float in [0, 1). Defaults to math/rand/v2.
	Rand func() float64
	Now  func() time.Time
}

// Orchestrator runs one action across a wallet set, strictly one wallet
// at a time.
type Orchestrator struct {
	trader    Trader
	ledger    ledger.Store
	closer    AccountCloser
	confirmer Confirmer
	publisher events.Publisher
	observer  Observer
	logger    *zap.Logger

	delay  time.Duration
	jitter time.Duration
	rand   func() float64
	now    func() time.Time
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		trader:    cfg.Trader,
		ledger:    cfg.Ledger,
		closer:    cfg.Closer,
		confirmer: cfg.Confirmer,
		publisher: cfg.Publisher,
		observer:  cfg.Observer,
		logger:    cfg.Logger.Named("orchestrator"),
		delay:     cfg.WalletDelay,
		jitter:    cfg.Jitter,
		rand:      cfg.Rand,
		now:       cfg.Now,
	}
	if o.rand == nil {
		o.rand = rand.Float64
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.publisher == nil {
		o.publisher = events.Nop{}
	}
	return o
}

// RunBuy buys mint from every wallet with an independent amount drawn from
// [minSol, maxSol). min == max buys exactly min everywhere.
func (o *Orchestrator) RunBuy(ctx context.Context, mint solana.PublicKey, wallets []*wallet.Wallet, minSol, maxSol float64) (*Batch, error) {
	if math.IsNaN(minSol) || math.IsNaN(maxSol) || math.IsInf(maxSol, 0) || minSol <= 0 || maxSol < minSol {
		return nil, fmt.Errorf("%w: [%v, %v)", ErrInvalidRange, minSol, maxSol)
	}
	return o.run(ctx, mint, trade.Buy, wallets, func(*wallet.Wallet) (trade.AmountSpec, error) {
		return trade.AbsoluteAmount(o.drawAmount(minSol, maxSol))
	})
}

// RunFixedBuy buys the same amount from every wallet (mini wallets).
func (o *Orchestrator) RunFixedBuy(ctx context.Context, mint solana.PublicKey, wallets []*wallet.Wallet, sol float64) (*Batch, error) {
	amount, err := trade.AbsoluteAmount(sol)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, mint, trade.Buy, wallets, func(*wallet.Wallet) (trade.AmountSpec, error) {
		return amount, nil
	})
}

// RunSell sells from every wallet. Percentages are resolved per wallet by
// the executor against the live balance.
func (o *Orchestrator) RunSell(ctx context.Context, mint solana.PublicKey, wallets []*wallet.Wallet, amount trade.AmountSpec) (*Batch, error) {
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: zero sell amount", trade.ErrInvalidAmount)
	}
	return o.run(ctx, mint, trade.Sell, wallets, func(*wallet.Wallet) (trade.AmountSpec, error) {
		return amount, nil
	})
}

// drawAmount returns a uniform draw from [lo, hi).
func (o *Orchestrator) drawAmount(lo, hi float64) float64 {
	if hi == lo {
		return lo
	}
	v := lo + o.rand()*(hi-lo)
	if v >= hi {
		v = math.Nextafter(hi, lo)
	}
	return v
}

func (o *Orchestrator) run(
	ctx context.Context,
	mint solana.PublicKey,
	action trade.Action,
	wallets []*wallet.Wallet,
	amountFor func(*wallet.Wallet) (trade.AmountSpec, error),
) (*Batch, error) {
	batch := &Batch{
		ID:      uuid.New().String(),
		Mint:    mint.String(),
		Action:  action,
		Started: o.now(),
		mint:    mint,
	}
	logger := o.logger.With(
		zap.String("batch_id", batch.ID),
		zap.String("mint", batch.Mint),
		zap.String("action", string(action)),
		zap.Int("wallets", len(wallets)))
	logger.Info("Starting batch")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if o.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(o.delay), 1)
	}

	for i, w := range wallets {
		var err error
		if i == 0 {
			err = limiter.Wait(ctx)
		} else {
			err = o.pace(ctx, limiter)
		}
		if err != nil {
			batch.abort(wallets[i:], err)
			logger.Warn("Batch interrupted", zap.Int("remaining", len(wallets)-i), zap.Error(err))
			break
		}
		batch.Results = append(batch.Results, o.runWallet(ctx, logger, batch, w, amountFor))
	}

	batch.Finished = o.now()
	summary := batch.Summary()
	logger.Info("Batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("anomalies", summary.Anomalies),
		zap.Int("ledger_writes", summary.LedgerWrites),
		zap.Int("closures", summary.Closures),
		zap.Duration("elapsed", batch.Finished.Sub(batch.Started)))
	for _, r := range batch.Results {
		if r.Err != nil {
			logger.Info("Wallet result", zap.String("wallet", r.Wallet), zap.String("status", "failed"), zap.Error(r.Err))
		} else {
			logger.Info("Wallet result", zap.String("wallet", r.Wallet), zap.String("status", "confirmed"),
				zap.String("signature", r.Signature), zap.Float64("token_delta", r.TokenDelta))
		}
	}

	o.publish(ctx, logger, &events.BatchCompletedEvent{
		BaseEvent:    events.NewBase(events.BatchCompleted),
		BatchID:      batch.ID,
		TokenMint:    batch.Mint,
		Action:       string(action),
		Wallets:      len(wallets),
		Succeeded:    summary.Succeeded,
		Failed:       summary.Failed,
		Anomalies:    summary.Anomalies,
		LedgerWrites: summary.LedgerWrites,
		Closures:     summary.Closures,
	})
	return batch, nil
}

// pace blocks until the next wallet may start.
func (o *Orchestrator) pace(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	if o.jitter <= 0 {
		return ctx.Err()
	}
	extra := time.Duration(o.rand() * float64(o.jitter))
	timer := time.NewTimer(extra)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) runWallet(
	ctx context.Context,
	logger *zap.Logger,
	batch *Batch,
	w *wallet.Wallet,
	amountFor func(*wallet.Wallet) (trade.AmountSpec, error),
) WalletResult {
	logger = logger.With(zap.String("wallet", w.Name), zap.String("wallet_address", w.Address()))
	wr := WalletResult{Wallet: w.Name, Address: w.Address()}

	amount, err := amountFor(w)
	if err != nil {
		wr.Err = err
		logger.Error("❌ Invalid amount", zap.Error(err))
		return wr
	}
	wr.Amount = amount.String()

	res, err := o.trader.ExecuteTrade(ctx, w, batch.mint, amount, batch.Action)
	wr.TokenDelta = res.TokenDelta
	if err != nil {
		wr.Err = err
		o.publishTrade(ctx, logger, batch, wr, res)
		return wr
	}
	wr.Confirmed = true
	wr.Signature = res.Signature.String()

	switch batch.Action {
	case trade.Buy:
		o.recordPurchase(ctx, logger, batch, &wr, res)
	case trade.Sell:
		if amount.IsFullBalance() && res.PostBalanceKnown && res.PostBalance.Raw == 0 {
			o.closeAccount(ctx, logger, batch, w, &wr)
		}
	}

	o.publishTrade(ctx, logger, batch, wr, res)
	return wr
}

// recordPurchase appends a ledger entry for a buy with a positive delta.
func (o *Orchestrator) recordPurchase(ctx context.Context, logger *zap.Logger, batch *Batch, wr *WalletResult, res trade.Result) {
	if res.TokenDelta <= 0 {
		wr.Anomaly = true
		logger.Warn("⚠️ Skipping ledger write for non-positive delta", zap.Float64("token_delta", res.TokenDelta))
		return
	}
	if o.ledger == nil {
		return
	}
	rec, err := ledger.NewPurchaseRecord(batch.Mint, wr.Address, res.Amount, res.TokenDelta, o.now())
	if err == nil {
		err = o.ledger.Append(ctx, rec)
	}
	if o.observer != nil {
		o.observer.RecordLedgerWrite(err)
	}
	if err != nil {
		logger.Error("Failed to write purchase record", zap.Error(err))
		return
	}
	wr.LedgerWritten = true
	logger.Debug("Purchase recorded",
		zap.Float64("spent", rec.SpentAmount),
		zap.Float64("unit_price", rec.UnitPrice))
}

// closeAccount закрывает пустой токен-аккаунт; ошибка не прерывает батч.
func (o *Orchestrator) closeAccount(ctx context.Context, logger *zap.Logger, batch *Batch, w *wallet.Wallet, wr *WalletResult) {
	if o.closer == nil {
		return
	}
	sig, err := o.closer.CloseTokenAccount(ctx, w.PrivateKey, batch.mint)
	if err == nil && o.confirmer != nil && !o.confirmer.AwaitConfirmation(ctx, sig) {
		err = fmt.Errorf("close account %s not confirmed", sig)
	}
	if o.observer != nil {
		o.observer.RecordAccountClosure(err)
	}
	if err != nil {
		wr.CloseErr = err
		logger.Warn("Token account closure failed", zap.Error(err))
		return
	}
	wr.AccountClosed = true
	logger.Info("🧹 Token account closed", zap.String("close_signature", sig.String()))
}

func (o *Orchestrator) publishTrade(ctx context.Context, logger *zap.Logger, batch *Batch, wr WalletResult, res trade.Result) {
	typ := events.TradeConfirmed
	errText := ""
	if wr.Err != nil {
		typ = events.TradeFailed
		errText = wr.Err.Error()
	}
	o.publish(ctx, logger, &events.TradeEvent{
		BaseEvent:     events.NewBase(typ),
		BatchID:       batch.ID,
		WalletName:    wr.Wallet,
		WalletAddress: wr.Address,
		TokenMint:     batch.Mint,
		Action:        string(batch.Action),
		Amount:        res.Amount,
		Signature:     wr.Signature,
		TokenDelta:    wr.TokenDelta,
		Error:         errText,
	})
}

func (o *Orchestrator) publish(ctx context.Context, logger *zap.Logger, ev events.Event) {
	if err := o.publisher.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish event", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}
