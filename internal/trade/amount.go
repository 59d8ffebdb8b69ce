// internal/trade/amount.go
package trade

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rovshanmuradov/pumpfleet/internal/blockchain/solbc"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

type AmountKind int

const (
	// Absolute is a fixed quantity: SOL for buys, whole tokens for sells.
	Absolute AmountKind = iota
	// PercentOfBalance is resolved against the live token balance right before submission.
	PercentOfBalance
)

var hundred = decimal.NewFromInt(100)

// AmountSpec is either Absolute(quantity) or PercentOfBalance(pct).
type AmountSpec struct {
	kind  AmountKind
	value decimal.Decimal
}

// finite отсекает NaN и ±Inf до decimal.NewFromFloat, который на них паникует.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func AbsoluteAmount(quantity float64) (AmountSpec, error) {
	if !finite(quantity) {
		return AmountSpec{}, fmt.Errorf("%w: quantity must be finite, got %v", ErrInvalidAmount, quantity)
	}
	v := decimal.NewFromFloat(quantity)
	if !v.IsPositive() {
		return AmountSpec{}, fmt.Errorf("%w: quantity must be positive, got %v", ErrInvalidAmount, quantity)
	}
	return AmountSpec{kind: Absolute, value: v}, nil
}

func PercentAmount(pct float64) (AmountSpec, error) {
	if !finite(pct) {
		return AmountSpec{}, fmt.Errorf("%w: percentage must be finite, got %v", ErrInvalidAmount, pct)
	}
	v := decimal.NewFromFloat(pct)
	if !v.IsPositive() || v.GreaterThan(hundred) {
		return AmountSpec{}, fmt.Errorf("%w: percentage must be in (0, 100], got %v", ErrInvalidAmount, pct)
	}
	return AmountSpec{kind: PercentOfBalance, value: v}, nil
}

// ParseAmountSpec accepts "100%", "12.5%" or a plain quantity like "250000".
func ParseAmountSpec(s string) (AmountSpec, error) {
	s = strings.TrimSpace(s)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := decimal.NewFromString(strings.TrimSpace(pct))
		if err != nil {
			return AmountSpec{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		return PercentAmount(v.InexactFloat64())
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return AmountSpec{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return AbsoluteAmount(v.InexactFloat64())
}

func (a AmountSpec) Kind() AmountKind { return a.kind }

func (a AmountSpec) IsZero() bool { return a.value.IsZero() }

// IsFullBalance reports a 100% sell.
func (a AmountSpec) IsFullBalance() bool {
	return a.kind == PercentOfBalance && a.value.Equal(hundred)
}

// Quantity returns the absolute quantity; meaningless for percentages.
func (a AmountSpec) Quantity() float64 {
	return a.value.InexactFloat64()
}

func (a AmountSpec) String() string {
	if a.kind == PercentOfBalance {
		return a.value.String() + "%"
	}
	return a.value.String()
}

// ResolveTokens turns the spec into raw token units against balance.
// Percentages round down so the result never exceeds the balance.
func (a AmountSpec) ResolveTokens(balance solbc.TokenBalance) (uint64, error) {
	var raw decimal.Decimal
	switch a.kind {
	case PercentOfBalance:
		raw = decimal.NewFromInt(int64(balance.Raw)).Mul(a.value).Div(hundred).Floor()
	case Absolute:
		raw = a.value.Shift(int32(balance.Decimals)).Floor()
		if raw.GreaterThan(decimal.NewFromInt(int64(balance.Raw))) {
			return 0, fmt.Errorf("%w: want %s, have %d raw", ErrInsufficientBalance, raw, balance.Raw)
		}
	default:
		return 0, fmt.Errorf("%w: unknown kind %d", ErrInvalidAmount, a.kind)
	}
	return uint64(raw.IntPart()), nil
}
