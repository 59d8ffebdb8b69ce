// internal/monitor/pnl.go
package monitor

import (
	"github.com/rovshanmuradov/pumpfleet/internal/ledger"
)

// PnL is the running profit over every purchase of one token.
//
// Tokens is the token-equivalent of the purchases, Σ spent/unitPrice.
// SpentPriceSum (Σ spent*unitPrice) is reported alongside for tooling that
// reads the older figure, but profit is Tokens*price - Invested.
type PnL struct {
	Records       int
	Invested      float64
	SpentPriceSum float64
	Tokens        float64
	Value         float64
	Profit        float64
}

// ComputePnL never fails: no records means zero invested and zero profit.
// Records with a non-positive unit price only count towards Invested.
func ComputePnL(records []ledger.PurchaseRecord, price float64) PnL {
	var p PnL
	for _, r := range records {
		p.Records++
		p.Invested += r.SpentAmount
		p.SpentPriceSum += r.SpentAmount * r.UnitPrice
		if r.UnitPrice > 0 {
			p.Tokens += r.SpentAmount / r.UnitPrice
		}
	}
	p.Value = p.Tokens * price
	p.Profit = p.Value - p.Invested
	return p
}

// ProfitPercent returns profit relative to the invested amount, 0 when nothing is invested.
func (p PnL) ProfitPercent() float64 {
	if p.Invested <= 0 {
		return 0
	}
	return p.Profit / p.Invested * 100
}
