// internal/app/app_test.go
package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfleet/internal/config"
	"github.com/rovshanmuradov/pumpfleet/internal/events"
	"github.com/rovshanmuradov/pumpfleet/internal/ledger"
	"github.com/rovshanmuradov/pumpfleet/internal/token"
	applogger "github.com/rovshanmuradov/pumpfleet/internal/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Paths.Ledger = filepath.Join(dir, "purchases.json")
	cfg.Paths.TokenList = filepath.Join(dir, "token_list.json")
	cfg.Paths.WalletsConfig = filepath.Join(dir, "wallets_config.json")

	a, err := build(context.Background(), cfg, applogger.Wrap(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestBuildWiresDefaults(t *testing.T) {
	a := testApp(t)

	assert.IsType(t, &ledger.JSONFileStore{}, a.Ledger)
	assert.IsType(t, events.Nop{}, a.Publisher)
	assert.NotNil(t, a.Executor)
	assert.NotNil(t, a.Orchestrator(0))
	assert.NotNil(t, a.Funder())
	assert.NotNil(t, a.Creator())
}

func TestBuildRejectsUnknownLedgerBackend(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Ledger.Backend = "mongo"

	_, err = build(context.Background(), cfg, applogger.Wrap(zaptest.NewLogger(t)))
	assert.Error(t, err)
}

func TestMintResolution(t *testing.T) {
	a := testApp(t)

	_, err := a.Mint("")
	assert.ErrorIs(t, err, token.ErrNoTokens)

	_, err = a.Mint("not-a-key")
	assert.Error(t, err)

	want := solana.NewWallet().PublicKey()
	require.NoError(t, a.Tokens.Append(token.Record{Mint: want.String(), CreatedAt: time.Now()}))

	got, err := a.Mint("")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other := solana.NewWallet().PublicKey()
	got, err = a.Mint(other.String())
	require.NoError(t, err)
	assert.Equal(t, other, got)
}

func TestServeMetricsDisabled(t *testing.T) {
	a := testApp(t)
	a.Config.Metrics.ListenAddr = ""
	assert.NoError(t, a.ServeMetrics(context.Background()))
}

func TestShutdownRunsInReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		sh.AddFunc(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sh.Shutdown())
	assert.Equal(t, []string{"c", "b", "a"}, order)

	// повторный вызов ничего не делает
	require.NoError(t, sh.Shutdown())
	assert.Len(t, order, 3)
}

func TestShutdownCollectsErrorsAndTimeouts(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), 20*time.Millisecond)
	boom := errors.New("boom")
	closed := false

	sh.AddFunc("ok", func() error { closed = true; return nil })
	sh.AddFunc("slow", func() error { time.Sleep(200 * time.Millisecond); return nil })
	sh.AddFunc("broken", func() error { return boom })

	err := sh.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "slow: shutdown timeout")
	assert.True(t, closed)
}

func TestSignalContextCancelsWithParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := SignalContext(parent, zaptest.NewLogger(t))
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
