// internal/wallet/funding.go
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const LamportsPerSOL = 1_000_000_000

var ErrTransferNotConfirmed = errors.New("transfer not confirmed")

type Transferer interface {
	Transfer(ctx context.Context, from solana.PrivateKey, to solana.PublicKey, lamports uint64) (solana.Signature, error)
}

type Confirmer interface {
	AwaitConfirmation(ctx context.Context, signature solana.Signature) bool
}

// Funder пополняет кошельки переводами SOL с основного кошелька.
type Funder struct {
	client    Transferer
	confirmer Confirmer
	logger    *zap.Logger
}

func NewFunder(client Transferer, confirmer Confirmer, logger *zap.Logger) *Funder {
	return &Funder{client: client, confirmer: confirmer, logger: logger.Named("funder")}
}

// FundResult – итог пополнения одного кошелька.
type FundResult struct {
	Wallet    string
	AmountSOL float64
	Signature solana.Signature
	Err       error
}

// SolToLamports переводит SOL в лампорты с округлением вниз.
func SolToLamports(sol float64) (uint64, error) {
	if math.IsNaN(sol) || math.IsInf(sol, 0) {
		return 0, fmt.Errorf("amount must be finite, got %v", sol)
	}
	d := decimal.NewFromFloat(sol)
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %v", sol)
	}
	lamports := d.Shift(9).Floor()
	if lamports.IsZero() {
		return 0, fmt.Errorf("amount %v SOL is below one lamport", sol)
	}
	return uint64(lamports.IntPart()), nil
}

// Fund переводит sol SOL с from на to и ждёт подтверждения.
func (f *Funder) Fund(ctx context.Context, from *Wallet, to solana.PublicKey, sol float64) (solana.Signature, error) {
	lamports, err := SolToLamports(sol)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := f.client.Transfer(ctx, from.PrivateKey, to, lamports)
	if err != nil {
		return solana.Signature{}, err
	}
	if !f.confirmer.AwaitConfirmation(ctx, sig) {
		return sig, fmt.Errorf("%w: %s", ErrTransferNotConfirmed, sig)
	}
	f.logger.Info("Wallet funded",
		zap.String("from", from.Name),
		zap.String("to", to.String()),
		zap.Float64("sol", sol),
		zap.String("signature", sig.String()))
	return sig, nil
}

// FundMany пополняет кошельки из набора по карте имя -> SOL. Кошельки без
// суммы пропускаются, ошибка одного кошелька не прерывает остальные.
func (f *Funder) FundMany(ctx context.Context, from *Wallet, wallets []*Wallet, amounts map[string]float64) []FundResult {
	results := make([]FundResult, 0, len(wallets))
	for _, w := range wallets {
		amount, ok := amounts[w.Name]
		if !ok || amount <= 0 {
			continue
		}
		if ctx.Err() != nil {
			results = append(results, FundResult{Wallet: w.Name, AmountSOL: amount, Err: ctx.Err()})
			continue
		}
		sig, err := f.Fund(ctx, from, w.PublicKey, amount)
		if err != nil {
			f.logger.Error("Funding failed", zap.String("wallet", w.Name), zap.Error(err))
		}
		results = append(results, FundResult{Wallet: w.Name, AmountSOL: amount, Signature: sig, Err: err})
	}
	return results
}

type BalanceReader interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

// Balance – SOL баланс одного кошелька набора.
type Balance struct {
	Wallet  string
	Address string
	SOL     float64
	Err     error
}

// LamportsToSol – обратное к SolToLamports, без потерь для целых лампортов.
func LamportsToSol(lamports uint64) float64 {
	return decimal.NewFromUint64(lamports).Shift(-9).InexactFloat64()
}

// Balances читает SOL балансы кошельков по одному; ошибка одного кошелька
// попадает в его Balance.Err.
func Balances(ctx context.Context, client BalanceReader, wallets []*Wallet) []Balance {
	out := make([]Balance, 0, len(wallets))
	for _, w := range wallets {
		b := Balance{Wallet: w.Name, Address: w.Address()}
		lamports, err := client.GetBalance(ctx, w.PublicKey)
		if err != nil {
			b.Err = err
		} else {
			b.SOL = LamportsToSol(lamports)
		}
		out = append(out, b)
	}
	return out
}
