// internal/trade/executor_test.go
package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfleet/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfleet/internal/tradeapi"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockAPI struct {
	requests []tradeapi.TradeRequest
	err      error
}

func (m *mockAPI) BuildTransaction(_ context.Context, req tradeapi.TradeRequest) ([]byte, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return []byte{0xde, 0xad}, nil
}

type mockSender struct {
	blobs [][]byte
	err   error
}

func (m *mockSender) SendSerialized(_ context.Context, blob []byte, _ ...solana.PrivateKey) (solana.Signature, error) {
	if m.err != nil {
		return solana.Signature{}, m.err
	}
	m.blobs = append(m.blobs, blob)
	return solana.Signature{0xaa}, nil
}

// scriptedBalances returns the balances in order; the last one repeats.
type scriptedBalances struct {
	seq   []solbc.TokenBalance
	calls int
	err   error
}

func (b *scriptedBalances) TokenBalance(context.Context, solana.PublicKey, solana.PublicKey) (solbc.TokenBalance, error) {
	if b.err != nil {
		return solbc.TokenBalance{}, b.err
	}
	i := b.calls
	if i >= len(b.seq) {
		i = len(b.seq) - 1
	}
	b.calls++
	return b.seq[i], nil
}

type staticConfirmer bool

func (c staticConfirmer) AwaitConfirmation(context.Context, solana.Signature) bool { return bool(c) }

type recordingObserver struct {
	statuses  []string
	anomalies int
}

func (o *recordingObserver) RecordTrade(_, status string, _ time.Duration) {
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) RecordDeltaAnomaly() { o.anomalies++ }

type fixture struct {
	api      *mockAPI
	sender   *mockSender
	balances *scriptedBalances
	observer *recordingObserver
	exec     *Executor
	wallet   *wallet.Wallet
	mint     solana.PublicKey
}

func newFixture(t *testing.T, confirmed bool, balances ...solbc.TokenBalance) *fixture {
	t.Helper()
	w, err := wallet.Generate("additional1")
	require.NoError(t, err)
	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	f := &fixture{
		api:      &mockAPI{},
		sender:   &mockSender{},
		balances: &scriptedBalances{seq: balances},
		observer: &recordingObserver{},
		wallet:   w,
		mint:     mintKey.PublicKey(),
	}
	f.exec = NewExecutor(ExecutorConfig{
		API:       f.api,
		Sender:    f.sender,
		Balances:  f.balances,
		Confirmer: staticConfirmer(confirmed),
		Settings:  Settings{Slippage: 10, PriorityFee: 0.00001, Pool: "pump"},
		Observer:  f.observer,
		Logger:    zaptest.NewLogger(t),
	})
	return f
}

func sol(t *testing.T, v float64) AmountSpec {
	spec, err := AbsoluteAmount(v)
	require.NoError(t, err)
	return spec
}

func TestExecuteBuyComputesDelta(t *testing.T) {
	f := newFixture(t, true,
		solbc.TokenBalance{Raw: 0},
		solbc.TokenBalance{Raw: 2_000_000_000_000, Decimals: 6})

	res, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, sol(t, 1.0), Buy)
	require.NoError(t, err)

	assert.True(t, res.Confirmed)
	assert.Equal(t, solana.Signature{0xaa}, res.Signature)
	assert.Equal(t, int64(2_000_000_000_000), res.RawDelta)
	assert.Equal(t, 2_000_000.0, res.TokenDelta)

	require.Len(t, f.api.requests, 1)
	req := f.api.requests[0]
	assert.Equal(t, tradeapi.ActionBuy, req.Action)
	assert.Equal(t, 1.0, req.Amount)
	assert.Equal(t, "true", req.DenominatedInSol)
	assert.Equal(t, f.wallet.Address(), req.PublicKey)
	assert.Equal(t, f.mint.String(), req.Mint)
	assert.Equal(t, 10, req.Slippage)
	assert.Equal(t, "pump", req.Pool)
	assert.Equal(t, []string{"confirmed"}, f.observer.statuses)
}

func TestExecuteBuyZeroDeltaIsSoftAnomaly(t *testing.T) {
	bal := solbc.TokenBalance{Raw: 500, Decimals: 6}
	f := newFixture(t, true, bal, bal)

	res, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, sol(t, 0.1), Buy)
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
	assert.Zero(t, res.RawDelta)
	assert.Equal(t, 1, f.observer.anomalies)
}

func TestExecuteSellPercentResolvesAtExecutionTime(t *testing.T) {
	full, err := ParseAmountSpec("100%")
	require.NoError(t, err)

	// balance changed after the spec was built; the sell must use the live figure
	f := newFixture(t, true,
		solbc.TokenBalance{Raw: 3_500_000, Decimals: 6},
		solbc.TokenBalance{Raw: 0, Decimals: 6})

	res, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, full, Sell)
	require.NoError(t, err)

	require.Len(t, f.api.requests, 1)
	req := f.api.requests[0]
	assert.Equal(t, tradeapi.ActionSell, req.Action)
	assert.Equal(t, 3.5, req.Amount)
	assert.Equal(t, "false", req.DenominatedInSol)
	assert.Equal(t, -3.5, res.TokenDelta)
	assert.True(t, res.PostBalanceKnown)
	assert.Zero(t, res.PostBalance.Raw)
	assert.Zero(t, f.observer.anomalies)
}

func TestExecuteSellNothingToSell(t *testing.T) {
	full, _ := PercentAmount(100)
	f := newFixture(t, true, solbc.TokenBalance{})

	_, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, full, Sell)
	assert.ErrorIs(t, err, ErrNothingToSell)
	assert.Empty(t, f.api.requests)
	assert.Equal(t, []string{"failed"}, f.observer.statuses)
}

func TestExecuteRejectsPercentBuy(t *testing.T) {
	half, _ := PercentAmount(50)
	f := newFixture(t, true, solbc.TokenBalance{})

	_, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, half, Buy)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, f.api.requests)
}

func TestExecuteSubmissionFailures(t *testing.T) {
	t.Run("api", func(t *testing.T) {
		f := newFixture(t, true, solbc.TokenBalance{})
		f.api.err = errors.New("502 bad gateway")
		res, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, sol(t, 0.1), Buy)
		require.Error(t, err)
		assert.False(t, res.Confirmed)
		assert.True(t, res.Signature.IsZero())
		assert.Len(t, f.api.requests, 1)
	})
	t.Run("broadcast", func(t *testing.T) {
		f := newFixture(t, true, solbc.TokenBalance{})
		f.sender.err = errors.New("blockhash not found")
		res, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, sol(t, 0.1), Buy)
		require.Error(t, err)
		assert.False(t, res.Confirmed)
		assert.Len(t, f.api.requests, 1)
	})
	t.Run("balance", func(t *testing.T) {
		f := newFixture(t, true, solbc.TokenBalance{})
		f.balances.err = errors.New("connection refused")
		_, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, sol(t, 0.1), Buy)
		require.Error(t, err)
		assert.Empty(t, f.api.requests)
	})
}

func TestExecuteNotConfirmedHasNoSignature(t *testing.T) {
	f := newFixture(t, false, solbc.TokenBalance{})

	res, err := f.exec.ExecuteTrade(context.Background(), f.wallet, f.mint, sol(t, 0.1), Buy)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.False(t, res.Confirmed)
	assert.True(t, res.Signature.IsZero())
	assert.Len(t, f.sender.blobs, 1)
	assert.Equal(t, []string{"unconfirmed"}, f.observer.statuses)
}
