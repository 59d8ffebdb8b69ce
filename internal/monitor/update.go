// internal/monitor/update.go
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// TotalSupply is the fixed supply of a pump token, in whole tokens.
const TotalSupply = 1e9

// ErrInertMessage marks feed messages that carry no market data
// (subscription acks, heartbeats, other events).
var ErrInertMessage = errors.New("inert feed message")

var validate = validator.New(validator.WithRequiredStructEnabled())

// MarketUpdate is one decoded trade on the feed. Market cap and reserves
// are denominated in SOL.
type MarketUpdate struct {
	Mint             string
	Signature        string
	TxType           string
	TokenAmount      float64
	MarketCap        float64
	BaseTokensInPool float64
	QuoteInPool      float64
}

// Price returns SOL per token.
func (u MarketUpdate) Price() float64 {
	return u.MarketCap / TotalSupply
}

// wireUpdate accepts both the canonical field names and the ones the
// PumpPortal feed actually sends.
type wireUpdate struct {
	MarketCap    *float64 `json:"marketCapDenominated"`
	MarketCapSol *float64 `json:"marketCapSol"`
	BaseTokens   *float64 `json:"baseTokensInPool"`
	VTokens      *float64 `json:"vTokensInBondingCurve"`
	Quote        *float64 `json:"quoteInPool"`
	VSol         *float64 `json:"vSolInBondingCurve"`
	TxType       string   `json:"txType"`
	TokenAmount  *float64 `json:"tokenAmount"`
	Mint         string   `json:"mint"`
	Signature    string   `json:"signature"`
}

type requiredFields struct {
	MarketCap  *float64 `validate:"required,gt=0"`
	BaseTokens *float64 `validate:"required,gte=0"`
	Quote      *float64 `validate:"required,gte=0"`
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// DecodeUpdate parses a feed frame. Frames without the three market fields
// return ErrInertMessage.
func DecodeUpdate(data []byte) (MarketUpdate, error) {
	var w wireUpdate
	if err := json.Unmarshal(data, &w); err != nil {
		return MarketUpdate{}, fmt.Errorf("%w: %v", ErrInertMessage, err)
	}

	req := requiredFields{
		MarketCap:  firstSet(w.MarketCap, w.MarketCapSol),
		BaseTokens: firstSet(w.BaseTokens, w.VTokens),
		Quote:      firstSet(w.Quote, w.VSol),
	}
	if err := validate.Struct(req); err != nil {
		return MarketUpdate{}, fmt.Errorf("%w: %v", ErrInertMessage, err)
	}

	u := MarketUpdate{
		Mint:             w.Mint,
		Signature:        w.Signature,
		TxType:           w.TxType,
		MarketCap:        *req.MarketCap,
		BaseTokensInPool: *req.BaseTokens,
		QuoteInPool:      *req.Quote,
	}
	if w.TokenAmount != nil {
		u.TokenAmount = *w.TokenAmount
	}
	return u, nil
}

// subscribeMessage is sent once per successful connection.
type subscribeMessage struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys"`
}

func newSubscribeMessage(mint string) subscribeMessage {
	return subscribeMessage{Method: "subscribeTokenTrade", Keys: []string{mint}}
}
