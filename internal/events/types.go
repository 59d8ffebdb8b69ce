// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Trade events
	TradeConfirmed EventType = "trade.confirmed"
	TradeFailed    EventType = "trade.failed"
	BatchCompleted EventType = "batch.completed"

	// Token events
	TokenCreated EventType = "token.created"

	// Price events
	PriceUpdated   EventType = "price.updated"
	AlertTriggered EventType = "price.alert"

	// Monitoring events
	MonitoringStarted EventType = "monitoring.started"
	MonitoringStopped EventType = "monitoring.stopped"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	EventTime time.Time `json:"time"`
}

func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TradeEvent is emitted for every wallet in a batch, confirmed or not.
type TradeEvent struct {
	BaseEvent
	BatchID       string  `json:"batchId"`
	WalletName    string  `json:"walletName"`
	WalletAddress string  `json:"walletAddress"`
	TokenMint     string  `json:"tokenMint"`
	Action        string  `json:"action"`
	Amount        float64 `json:"amount"`
	Signature     string  `json:"signature,omitempty"`
	TokenDelta    float64 `json:"tokenDelta"`
	Error         string  `json:"error,omitempty"`
}

// BatchCompletedEvent carries the batch summary.
type BatchCompletedEvent struct {
	BaseEvent
	BatchID      string `json:"batchId"`
	TokenMint    string `json:"tokenMint"`
	Action       string `json:"action"`
	Wallets      int    `json:"wallets"`
	Succeeded    int    `json:"succeeded"`
	Failed       int    `json:"failed"`
	Anomalies    int    `json:"anomalies"`
	LedgerWrites int    `json:"ledgerWrites"`
	Closures     int    `json:"closures"`
}

// TokenCreatedEvent is emitted after a create transaction is confirmed.
type TokenCreatedEvent struct {
	BaseEvent
	TokenMint string `json:"tokenMint"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Signature string `json:"signature"`
}

// PriceUpdatedEvent is emitted for every valid feed message.
type PriceUpdatedEvent struct {
	BaseEvent
	TokenMint    string   `json:"tokenMint"`
	TxType       string   `json:"txType"`
	MarketCapSol float64  `json:"marketCapSol"`
	PriceSol     float64  `json:"priceSol"`
	PriceUSD     *float64 `json:"priceUsd,omitempty"`
	Invested     float64  `json:"invested"`
	Profit       float64  `json:"profit"`
}

// MonitoringStartedEvent is emitted when price monitoring begins.
type MonitoringStartedEvent struct {
	BaseEvent
	SessionID string `json:"sessionId"`
	TokenMint string `json:"tokenMint"`
}

// MonitoringStoppedEvent is emitted when price monitoring ends.
type MonitoringStoppedEvent struct {
	BaseEvent
	SessionID string `json:"sessionId"`
	TokenMint string `json:"tokenMint"`
	Reason    string `json:"reason"` // "stopped", "cancelled"
}

// AlertEvent is emitted when a price snapshot crosses a configured threshold.
type AlertEvent struct {
	BaseEvent
	TokenMint  string  `json:"tokenMint"`
	AlertType  string  `json:"alertType"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	PriceSol   float64 `json:"priceSol"`
	PnLPercent float64 `json:"pnlPercent"`
	Threshold  float64 `json:"threshold"`
}
