// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNonPositiveDelta = errors.New("token delta must be positive")

// PurchaseRecord is one confirmed buy. UnitPrice is spent currency per token.
type PurchaseRecord struct {
	TokenMint     string    `json:"tokenMint"`
	WalletAddress string    `json:"walletAddress"`
	SpentAmount   float64   `json:"spentAmount"`
	UnitPrice     float64   `json:"unitPrice"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewPurchaseRecord derives the unit price from a buy fill. Fills with a
// non-positive token delta are rejected so they never reach a store.
func NewPurchaseRecord(mint, walletAddress string, spent, tokenDelta float64, ts time.Time) (PurchaseRecord, error) {
	if tokenDelta <= 0 {
		return PurchaseRecord{}, fmt.Errorf("%w: %v", ErrNonPositiveDelta, tokenDelta)
	}
	return PurchaseRecord{
		TokenMint:     mint,
		WalletAddress: walletAddress,
		SpentAmount:   spent,
		UnitPrice:     spent / tokenDelta,
		Timestamp:     ts.UTC(),
	}, nil
}

// Store is the purchase ledger. List with an empty mint returns every record.
type Store interface {
	Append(ctx context.Context, rec PurchaseRecord) error
	List(ctx context.Context, mint string) ([]PurchaseRecord, error)
}

func filterByMint(records []PurchaseRecord, mint string) []PurchaseRecord {
	if mint == "" {
		return records
	}
	out := make([]PurchaseRecord, 0, len(records))
	for _, r := range records {
		if r.TokenMint == mint {
			out = append(out, r)
		}
	}
	return out
}
