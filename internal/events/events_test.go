// internal/events/events_test.go
package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "pumpfleet.trade.confirmed", Subject("pumpfleet", TradeConfirmed))
	assert.Equal(t, "fleet.price.updated", Subject("fleet.", PriceUpdated))
}

func TestMemoryPublisherKeepsOrder(t *testing.T) {
	m := &Memory{}
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, &TradeEvent{BaseEvent: NewBase(TradeConfirmed), WalletName: "a1"}))
	require.NoError(t, m.Publish(ctx, &TradeEvent{BaseEvent: NewBase(TradeFailed), WalletName: "a2"}))
	require.NoError(t, m.Publish(ctx, &BatchCompletedEvent{BaseEvent: NewBase(BatchCompleted), Wallets: 2}))

	all := m.Events()
	require.Len(t, all, 3)
	assert.Equal(t, TradeConfirmed, all[0].Type())
	assert.Len(t, m.OfType(TradeFailed), 1)
	assert.Len(t, m.OfType(PriceUpdated), 0)
}

func TestEventJSONShape(t *testing.T) {
	usd := 0.07
	ev := &PriceUpdatedEvent{
		BaseEvent: NewBase(PriceUpdated),
		TokenMint: "Mint111",
		PriceSol:  0.0005,
		PriceUSD:  &usd,
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "price.updated", decoded["type"])
	assert.Equal(t, "Mint111", decoded["tokenMint"])
	assert.Equal(t, 0.07, decoded["priceUsd"])
	assert.Contains(t, decoded, "time")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), &TokenCreatedEvent{BaseEvent: NewBase(TokenCreated)}))
	assert.NoError(t, p.Close())
}
