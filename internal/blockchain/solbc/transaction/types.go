// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	DefaultAttempts = 5
	DefaultInterval = 2 * time.Second
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFinalized = "finalized"
	StatusFailed    = "failed"
)

type Config struct {
	Attempts int
	Interval time.Duration
	// Commitment, достаточный для подтверждения. По умолчанию finalized.
	Commitment rpc.CommitmentType
}

type Status struct {
	Signature     string
	Status        string
	Confirmations uint64
	Slot          uint64
	Error         string
	Timestamp     time.Time
}

// StatusReader – источник статусов подписей (solbc.Client или мок).
type StatusReader interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Observer получает итог каждого ожидания подтверждения.
type Observer interface {
	RecordConfirmation(confirmed bool, attempts int)
}
