// internal/monitor/render_test.go
package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	s := Snapshot{
		Mint:          "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		Update:        MarketUpdate{MarketCap: 500000},
		PriceSol:      0.0005,
		FiatRate:      150,
		FiatAvailable: true,
		PnL:           PnL{Invested: 1, Profit: 999},
	}
	out := Render(s)
	assert.Contains(t, out, "7xKX…gAsU")
	assert.Contains(t, out, "0.0005000000 SOL")
	assert.Contains(t, out, "$0.07500000")
	assert.Contains(t, out, "500000.00 SOL")
	assert.Contains(t, out, "+999.0000 SOL (+99900.00%) ↑")

	s.FiatAvailable = false
	s.PnL = PnL{}
	out = Render(s)
	assert.Contains(t, out, "$ n/a")
	assert.Contains(t, out, "0.0000 SOL (0.00%) →")
}
