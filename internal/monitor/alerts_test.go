package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAlerts(t *testing.T, cfg AlertConfig) (*AlertManager, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	am := NewAlertManager(cfg, zaptest.NewLogger(t))
	am.now = clock.now
	return am, clock
}

func pnlSnapshot(invested, profit float64) Snapshot {
	return Snapshot{Mint: "mint", PriceSol: 1e-7, PnL: PnL{Invested: invested, Profit: profit}}
}

func TestAlertProfitTargetWithCooldown(t *testing.T) {
	am, clock := newAlerts(t, AlertConfig{ProfitTargetPercent: 50, Cooldown: time.Minute})

	assert.Empty(t, am.Check(pnlSnapshot(1, 0.4)))

	alerts := am.Check(pnlSnapshot(1, 0.6))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertProfitTarget, alerts[0].Type)
	assert.InDelta(t, 60, alerts[0].PnLPercent, 1e-9)
	assert.Equal(t, "mint", alerts[0].TokenMint)

	clock.advance(30 * time.Second)
	assert.Empty(t, am.Check(pnlSnapshot(1, 0.7)))

	clock.advance(31 * time.Second)
	assert.Len(t, am.Check(pnlSnapshot(1, 0.7)), 1)
}

func TestAlertLossLimit(t *testing.T) {
	am, _ := newAlerts(t, AlertConfig{ProfitTargetPercent: 50, LossLimitPercent: 20})

	alerts := am.Check(pnlSnapshot(2, -0.5))
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLossLimit, alerts[0].Type)
	assert.Equal(t, "critical", alerts[0].Severity)
	assert.Equal(t, -20.0, alerts[0].Threshold)
}

func TestAlertNeedsInvestment(t *testing.T) {
	am, _ := newAlerts(t, AlertConfig{ProfitTargetPercent: 1, LossLimitPercent: 1})
	assert.Empty(t, am.Check(pnlSnapshot(0, 0)))
}

func TestAlertLargeTrade(t *testing.T) {
	am, _ := newAlerts(t, AlertConfig{LargeTradeSol: 5})

	s := pnlSnapshot(0, 0)
	s.Update = MarketUpdate{TxType: "sell", TokenAmount: 10_000_000}
	s.PriceSol = 4e-7
	assert.Empty(t, am.Check(s))

	s.PriceSol = 6e-7
	alerts := am.Check(s)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLargeTrade, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "sell")
}

func TestNilAlertManager(t *testing.T) {
	var am *AlertManager
	assert.Nil(t, am.Check(pnlSnapshot(1, 10)))
	assert.False(t, AlertConfig{}.Enabled())
	assert.True(t, AlertConfig{LossLimitPercent: 5}.Enabled())
}
