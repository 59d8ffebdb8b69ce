// internal/orchestrator/batch.go
package orchestrator

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfleet/internal/trade"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
)

// WalletResult is the outcome for one wallet of a batch. Callers inspect
// these individually; a batch has no aggregate pass/fail.
type WalletResult struct {
	Wallet        string
	Address       string
	Amount        string
	Confirmed     bool
	Signature     string
	TokenDelta    float64
	Anomaly       bool
	LedgerWritten bool
	AccountClosed bool
	CloseErr      error
	Err           error
}

type Batch struct {
	ID       string
	Mint     string
	Action   trade.Action
	Started  time.Time
	Finished time.Time
	Results  []WalletResult

	mint solana.PublicKey
}

type Summary struct {
	Wallets      int
	Succeeded    int
	Failed       int
	Anomalies    int
	LedgerWrites int
	Closures     int
}

func (b *Batch) Summary() Summary {
	s := Summary{Wallets: len(b.Results)}
	for _, r := range b.Results {
		if r.Confirmed {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.Anomaly {
			s.Anomalies++
		}
		if r.LedgerWritten {
			s.LedgerWrites++
		}
		if r.AccountClosed {
			s.Closures++
		}
	}
	return s
}

// Failed returns the results that did not confirm.
func (b *Batch) Failed() []WalletResult {
	var out []WalletResult
	for _, r := range b.Results {
		if !r.Confirmed {
			out = append(out, r)
		}
	}
	return out
}

// abort marks the wallets that never ran because the batch was cancelled.
func (b *Batch) abort(rest []*wallet.Wallet, err error) {
	for _, w := range rest {
		b.Results = append(b.Results, WalletResult{Wallet: w.Name, Address: w.Address(), Err: err})
	}
}
