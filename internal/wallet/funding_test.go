// internal/wallet/funding_test.go
package wallet

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type transfer struct {
	to       solana.PublicKey
	lamports uint64
}

type mockTransferer struct {
	transfers []transfer
	failFor   solana.PublicKey
}

func (m *mockTransferer) Transfer(_ context.Context, _ solana.PrivateKey, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if to.Equals(m.failFor) {
		return solana.Signature{}, errors.New("blockhash not found")
	}
	m.transfers = append(m.transfers, transfer{to: to, lamports: lamports})
	return solana.Signature{byte(len(m.transfers))}, nil
}

type staticConfirmer bool

func (c staticConfirmer) AwaitConfirmation(context.Context, solana.Signature) bool { return bool(c) }

func TestSolToLamports(t *testing.T) {
	tests := []struct {
		sol  float64
		want uint64
	}{
		{1, 1_000_000_000},
		{0.01, 10_000_000},
		{0.1, 100_000_000},
		{0.000000001, 1},
	}
	for _, tt := range tests {
		got, err := SolToLamports(tt.sol)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "sol=%v", tt.sol)
	}

	for _, bad := range []float64{0, -1, 0.0000000001, math.NaN(), math.Inf(1)} {
		_, err := SolToLamports(bad)
		assert.Error(t, err, "sol=%v", bad)
	}
}

func TestFundManySkipsAndIsolatesFailures(t *testing.T) {
	funder, _ := Generate("funder_additional")
	w1, _ := Generate("additional1")
	w2, _ := Generate("additional2")
	w3, _ := Generate("additional3")

	client := &mockTransferer{failFor: w2.PublicKey}
	f := NewFunder(client, staticConfirmer(true), zaptest.NewLogger(t))

	results := f.FundMany(context.Background(), funder, []*Wallet{w1, w2, w3}, map[string]float64{
		"additional1": 0.5,
		"additional2": 0.2,
	})

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	require.Len(t, client.transfers, 1)
	assert.Equal(t, w1.PublicKey, client.transfers[0].to)
	assert.Equal(t, uint64(500_000_000), client.transfers[0].lamports)
}

func TestFundUnconfirmed(t *testing.T) {
	funder, _ := Generate("funder_dev")
	dev, _ := Generate("dev")
	f := NewFunder(&mockTransferer{}, staticConfirmer(false), zaptest.NewLogger(t))

	_, err := f.Fund(context.Background(), funder, dev.PublicKey, 1)
	assert.ErrorIs(t, err, ErrTransferNotConfirmed)
}

type mockBalances map[solana.PublicKey]uint64

func (m mockBalances) GetBalance(_ context.Context, pubkey solana.PublicKey) (uint64, error) {
	v, ok := m[pubkey]
	if !ok {
		return 0, errors.New("rpc unavailable")
	}
	return v, nil
}

func TestBalances(t *testing.T) {
	w1, _ := Generate("additional1")
	w2, _ := Generate("additional2")
	w3, _ := Generate("additional3")

	client := mockBalances{
		w1.PublicKey: 1_500_000_000,
		w3.PublicKey: 0,
	}
	got := Balances(context.Background(), client, []*Wallet{w1, w2, w3})

	require.Len(t, got, 3)
	assert.Equal(t, "additional1", got[0].Wallet)
	assert.Equal(t, w1.Address(), got[0].Address)
	assert.Equal(t, 1.5, got[0].SOL)
	assert.NoError(t, got[0].Err)
	assert.Error(t, got[1].Err)
	assert.Zero(t, got[2].SOL)
	assert.NoError(t, got[2].Err)
}

func TestLamportsToSol(t *testing.T) {
	assert.Equal(t, 1.0, LamportsToSol(1_000_000_000))
	assert.Equal(t, 0.01, LamportsToSol(10_000_000))
	assert.Equal(t, 0.000000001, LamportsToSol(1))
}
