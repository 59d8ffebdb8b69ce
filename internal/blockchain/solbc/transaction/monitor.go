// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfleet/internal/blockchain/solbc"
	"go.uber.org/zap"
)

// Monitor опрашивает статус транзакции ограниченное число раз.
type Monitor struct {
	client   StatusReader
	logger   *zap.Logger
	config   Config
	observer Observer
}

func NewMonitor(client StatusReader, logger *zap.Logger, config Config, observer Observer) *Monitor {
	if config.Attempts <= 0 {
		config.Attempts = DefaultAttempts
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Commitment == "" {
		config.Commitment = rpc.CommitmentFinalized
	}
	return &Monitor{
		client:   client,
		logger:   logger.Named("tx-monitor"),
		config:   config,
		observer: observer,
	}
}

// AwaitConfirmation returns true as soon as the transaction reaches the
// configured commitment without an execution error. Transport errors only
// consume an attempt. An on-chain error ends the wait early with false.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature) bool {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	logger := m.logger.With(zap.String("signature", signature.String()))

	for attempt := 1; attempt <= m.config.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			logger.Warn("Confirmation wait cancelled", zap.Int("attempt", attempt), zap.Error(ctx.Err()))
			m.record(false, attempt-1)
			return false
		case <-ticker.C:
		}

		status, err := m.GetTransactionStatus(ctx, signature)
		if err != nil {
			// Rate limit и сетевые сбои ожидаемы при опросе, остальное – повод разбираться.
			if solbc.IsRetryableError(err) {
				logger.Debug("Confirmation check failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			} else {
				logger.Warn("Confirmation check failed", zap.Int("attempt", attempt), zap.Error(err))
			}
			continue
		}

		switch {
		case status.Status == StatusFailed:
			logger.Warn("Transaction failed on-chain", zap.String("error", status.Error))
			m.record(false, attempt)
			return false
		case m.reached(status.Status):
			logger.Debug("Transaction confirmed",
				zap.Int("attempt", attempt),
				zap.String("status", status.Status),
				zap.Uint64("slot", status.Slot))
			m.record(true, attempt)
			return true
		default:
			logger.Debug("Transaction not final yet", zap.Int("attempt", attempt), zap.String("status", status.Status))
		}
	}

	logger.Warn("Confirmation attempts exhausted", zap.Int("attempts", m.config.Attempts))
	m.record(false, m.config.Attempts)
	return false
}

func (m *Monitor) reached(status string) bool {
	if status == StatusFinalized {
		return true
	}
	return status == StatusConfirmed && m.config.Commitment == rpc.CommitmentConfirmed
}

func (m *Monitor) record(confirmed bool, attempts int) {
	if m.observer != nil {
		m.observer.RecordConfirmation(confirmed, attempts)
	}
}

func (m *Monitor) GetTransactionStatus(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, true, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return &Status{
			Signature: signature.String(),
			Status:    StatusPending,
			Timestamp: time.Now(),
		}, nil
	}

	status := response.Value[0]
	txStatus := &Status{
		Signature: signature.String(),
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}

	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = StatusFinalized
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = StatusConfirmed
	default:
		txStatus.Status = StatusPending
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = StatusFailed
	}

	return txStatus, nil
}
