// internal/blockchain/solbc/transaction/monitor_test.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfleet/internal/blockchain/solbc"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedReader returns one scripted response per call; the last one repeats.
type scriptedReader struct {
	steps []step
	calls int
}

type step struct {
	status *rpc.SignatureStatusesResult
	err    error
}

func (s *scriptedReader) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	st := s.steps[i]
	if st.err != nil {
		return nil, st.err
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{st.status}}, nil
}

type countingObserver struct {
	confirmed bool
	attempts  int
	calls     int
}

func (o *countingObserver) RecordConfirmation(confirmed bool, attempts int) {
	o.confirmed, o.attempts = confirmed, attempts
	o.calls++
}

func fastConfig() Config {
	return Config{Attempts: 5, Interval: time.Millisecond}
}

func finalized() *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{Slot: 42, ConfirmationStatus: rpc.ConfirmationStatusFinalized}
}

func TestAwaitConfirmationFinalizedAfterLag(t *testing.T) {
	reader := &scriptedReader{steps: []step{
		{status: nil},
		{status: &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusProcessed}},
		{status: &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}},
		{status: finalized()},
	}}
	obs := &countingObserver{}
	m := NewMonitor(reader, zaptest.NewLogger(t), fastConfig(), obs)

	assert.True(t, m.AwaitConfirmation(context.Background(), solana.Signature{1}))
	assert.Equal(t, 4, reader.calls)
	assert.True(t, obs.confirmed)
	assert.Equal(t, 4, obs.attempts)
}

func TestAwaitConfirmationSwallowsTransportErrors(t *testing.T) {
	reader := &scriptedReader{steps: []step{
		{err: errors.New("connection reset by peer")},
		{err: errors.New("429 too many requests")},
		{status: finalized()},
	}}
	m := NewMonitor(reader, zaptest.NewLogger(t), fastConfig(), nil)

	assert.True(t, m.AwaitConfirmation(context.Background(), solana.Signature{2}))
	assert.Equal(t, 3, reader.calls)
}

func TestAwaitConfirmationClassifiesStatusErrors(t *testing.T) {
	reader := &scriptedReader{steps: []step{
		{err: fmt.Errorf("%w: 429 too many requests", solbc.ErrRateLimit)},
		{err: errors.New("invalid params: bad signature encoding")},
		{status: finalized()},
	}}
	core, logs := observer.New(zapcore.DebugLevel)
	m := NewMonitor(reader, zap.New(core), fastConfig(), nil)

	assert.True(t, m.AwaitConfirmation(context.Background(), solana.Signature{7}))

	retried := logs.FilterMessage("Confirmation check failed, retrying").All()
	if assert.Len(t, retried, 1) {
		assert.Equal(t, zapcore.DebugLevel, retried[0].Level)
	}
	critical := logs.FilterMessage("Confirmation check failed").All()
	if assert.Len(t, critical, 1) {
		assert.Equal(t, zapcore.WarnLevel, critical[0].Level)
	}
}

func TestAwaitConfirmationExhausted(t *testing.T) {
	reader := &scriptedReader{steps: []step{{err: errors.New("timeout")}}}
	obs := &countingObserver{}
	m := NewMonitor(reader, zaptest.NewLogger(t), fastConfig(), obs)

	assert.False(t, m.AwaitConfirmation(context.Background(), solana.Signature{3}))
	assert.Equal(t, 5, reader.calls)
	assert.False(t, obs.confirmed)
	assert.Equal(t, 5, obs.attempts)
}

func TestAwaitConfirmationConfirmedIsNotFinal(t *testing.T) {
	reader := &scriptedReader{steps: []step{
		{status: &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}},
	}}
	m := NewMonitor(reader, zaptest.NewLogger(t), fastConfig(), nil)
	assert.False(t, m.AwaitConfirmation(context.Background(), solana.Signature{4}))

	cfg := fastConfig()
	cfg.Commitment = rpc.CommitmentConfirmed
	reader.calls = 0
	m = NewMonitor(reader, zaptest.NewLogger(t), cfg, nil)
	assert.True(t, m.AwaitConfirmation(context.Background(), solana.Signature{4}))
	assert.Equal(t, 1, reader.calls)
}

func TestAwaitConfirmationOnChainError(t *testing.T) {
	reader := &scriptedReader{steps: []step{
		{status: &rpc.SignatureStatusesResult{
			ConfirmationStatus: rpc.ConfirmationStatusFinalized,
			Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
		}},
	}}
	m := NewMonitor(reader, zaptest.NewLogger(t), fastConfig(), nil)

	assert.False(t, m.AwaitConfirmation(context.Background(), solana.Signature{5}))
	assert.Equal(t, 1, reader.calls)
}

func TestAwaitConfirmationCancelled(t *testing.T) {
	reader := &scriptedReader{steps: []step{{status: nil}}}
	m := NewMonitor(reader, zaptest.NewLogger(t), Config{Attempts: 5, Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, m.AwaitConfirmation(ctx, solana.Signature{6}))
	assert.Zero(t, reader.calls)
}

func TestNewMonitorDefaults(t *testing.T) {
	m := NewMonitor(&scriptedReader{}, zaptest.NewLogger(t), Config{}, nil)
	assert.Equal(t, DefaultAttempts, m.config.Attempts)
	assert.Equal(t, DefaultInterval, m.config.Interval)
	assert.Equal(t, rpc.CommitmentFinalized, m.config.Commitment)
}
