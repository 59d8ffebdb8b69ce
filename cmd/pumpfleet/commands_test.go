package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rovshanmuradov/pumpfleet/internal/orchestrator"
	"github.com/rovshanmuradov/pumpfleet/internal/recorder"
	"github.com/rovshanmuradov/pumpfleet/internal/trade"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformAmounts(t *testing.T) {
	var wallets []*wallet.Wallet
	for _, name := range []string{"wallet1", "wallet2"} {
		w, err := wallet.Generate(name)
		require.NoError(t, err)
		wallets = append(wallets, w)
	}

	amounts := uniformAmounts(wallets, 0.05)
	assert.Equal(t, map[string]float64{"wallet1": 0.05, "wallet2": 0.05}, amounts)
}

func TestReportFailsOnlyWhenNothingConfirmed(t *testing.T) {
	batch := &orchestrator.Batch{
		Action: trade.Buy,
		Mint:   "mint",
		Results: []orchestrator.WalletResult{
			{Wallet: "wallet1", Err: errors.New("rpc down")},
			{Wallet: "wallet2", Confirmed: true, TokenDelta: 10, LedgerWritten: true},
		},
	}
	assert.NoError(t, report(batch))

	batch.Results = batch.Results[:1]
	assert.Error(t, report(batch))

	assert.NoError(t, report(&orchestrator.Batch{Action: trade.Sell}))
}

func TestCommandsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, cmd := range []interface{ FullName() string }{
		walletsCommand(), tokenCommand(), buyCommand(), sellCommand(),
		miniBuyCommand(), monitorCommand(), discoverCommand(), ledgerCommand(),
	} {
		name := cmd.FullName()
		assert.False(t, seen[name], "duplicate command %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, 8)
}

func TestPrintHistory(t *testing.T) {
	fiat := 0.0042
	points := []recorder.Point{
		{Time: time.Unix(1700000000, 0), PriceSol: 0.000028, PriceFiat: &fiat, Profit: 1.5},
		{Time: time.Unix(1700000060, 0), PriceSol: 0.000027, Profit: -0.25},
	}

	var buf bytes.Buffer
	printHistory(&buf, points)
	out := buf.String()

	assert.Contains(t, out, "0.0000280000 SOL")
	assert.Contains(t, out, "$0.00420000")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "profit +1.500000 SOL")
	assert.Contains(t, out, "profit -0.250000 SOL")
	assert.Contains(t, out, "2 snapshots")
}

func TestMonitorHasHistorySubcommand(t *testing.T) {
	cmd := monitorCommand()
	require.NotNil(t, cmd.Command("history"))
	assert.NotNil(t, cmd.Action)
}
