// internal/monitor/update_test.go
package monitor

import (
	"encoding/json"
	"testing"

	"github.com/rovshanmuradov/pumpfleet/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUpdate(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		inert bool
		want  MarketUpdate
	}{
		{
			name: "canonical names",
			raw:  `{"marketCapDenominated":500000,"baseTokensInPool":800000000,"quoteInPool":30,"txType":"buy","tokenAmount":1200}`,
			want: MarketUpdate{MarketCap: 500000, BaseTokensInPool: 800000000, QuoteInPool: 30, TxType: "buy", TokenAmount: 1200},
		},
		{
			name: "pumpportal names",
			raw:  `{"mint":"Mint1","signature":"sig","txType":"sell","tokenAmount":5,"marketCapSol":31.5,"vTokensInBondingCurve":1000000,"vSolInBondingCurve":30.1}`,
			want: MarketUpdate{Mint: "Mint1", Signature: "sig", TxType: "sell", TokenAmount: 5, MarketCap: 31.5, BaseTokensInPool: 1000000, QuoteInPool: 30.1},
		},
		{
			name: "zero reserves are valid",
			raw:  `{"marketCapSol":1,"vTokensInBondingCurve":0,"vSolInBondingCurve":0}`,
			want: MarketUpdate{MarketCap: 1},
		},
		{name: "subscription ack", raw: `{"message":"Successfully subscribed to keys."}`, inert: true},
		{name: "missing quote", raw: `{"marketCapSol":31.5,"vTokensInBondingCurve":1000000}`, inert: true},
		{name: "zero market cap", raw: `{"marketCapSol":0,"vTokensInBondingCurve":1,"vSolInBondingCurve":1}`, inert: true},
		{name: "not json", raw: `ping`, inert: true},
		{name: "wrong type", raw: `{"marketCapSol":"big","vTokensInBondingCurve":1,"vSolInBondingCurve":1}`, inert: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeUpdate([]byte(tt.raw))
			if tt.inert {
				assert.ErrorIs(t, err, ErrInertMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarketUpdatePrice(t *testing.T) {
	u := MarketUpdate{MarketCap: 500000}
	assert.InDelta(t, 0.0005, u.Price(), 1e-15)
}

func TestSubscribeMessageShape(t *testing.T) {
	data, err := json.Marshal(newSubscribeMessage("Mint1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"subscribeTokenTrade","keys":["Mint1"]}`, string(data))
}

func TestComputePnLScenario(t *testing.T) {
	records := []ledger.PurchaseRecord{{TokenMint: "m", SpentAmount: 1.0, UnitPrice: 0.0000005}}
	price := MarketUpdate{MarketCap: 500000}.Price()

	p := ComputePnL(records, price)
	assert.Equal(t, 1, p.Records)
	assert.Equal(t, 1.0, p.Invested)
	assert.InDelta(t, 2_000_000, p.Tokens, 1e-6)
	assert.InDelta(t, 1000, p.Value, 1e-9)
	assert.InDelta(t, 999, p.Profit, 1e-9)
	assert.InDelta(t, 0.0000005, p.SpentPriceSum, 1e-18)
}

func TestComputePnLEmptyLedger(t *testing.T) {
	p := ComputePnL(nil, 0.0005)
	assert.Zero(t, p.Invested)
	assert.Zero(t, p.Profit)
	assert.Zero(t, p.ProfitPercent())
	assert.False(t, p.Profit != p.Profit, "profit must not be NaN")
}

func TestComputePnLSkipsZeroUnitPrice(t *testing.T) {
	records := []ledger.PurchaseRecord{
		{SpentAmount: 0.5, UnitPrice: 0},
		{SpentAmount: 1.0, UnitPrice: 0.001},
	}
	p := ComputePnL(records, 0.002)
	assert.Equal(t, 1.5, p.Invested)
	assert.InDelta(t, 1000, p.Tokens, 1e-9)
	assert.InDelta(t, 0.5, p.Profit, 1e-9)
}
