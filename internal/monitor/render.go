// internal/monitor/render.go
package monitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan   = lipgloss.Color("#00E5FF")
	colorGreen  = lipgloss.Color("#2AFFAA")
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#FFB500")
	colorMuted  = lipgloss.Color("#6C7280")

	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)
	mintStyle  = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	priceStyle = lipgloss.NewStyle().Foreground(colorYellow)
)

func shortMint(mint string) string {
	if len(mint) <= 10 {
		return mint
	}
	return mint[:4] + "…" + mint[len(mint)-4:]
}

// profitStyle picks the colour and arrow for a profit figure.
func profitStyle(v float64) (lipgloss.Style, string) {
	switch {
	case v > 0:
		return lipgloss.NewStyle().Foreground(colorGreen).Bold(true), "↑"
	case v < 0:
		return lipgloss.NewStyle().Foreground(colorRed).Bold(true), "↓"
	default:
		return lipgloss.NewStyle().Foreground(colorMuted), "→"
	}
}

func signed(v float64, prec int) string {
	prefix := ""
	switch {
	case v > 0:
		prefix = "+"
	case v < 0:
		prefix = "-"
	}
	return prefix + fmt.Sprintf("%.*f", prec, math.Abs(v))
}

// Render formats a snapshot as one console line.
func Render(s Snapshot) string {
	var b strings.Builder

	b.WriteString(mintStyle.Render(shortMint(s.Mint)))
	b.WriteString(labelStyle.Render(" price "))
	b.WriteString(priceStyle.Render(fmt.Sprintf("%.10f SOL", s.PriceSol)))
	if usd, ok := s.PriceFiat(); ok {
		b.WriteString(priceStyle.Render(fmt.Sprintf(" ($%.8f)", usd)))
	} else {
		b.WriteString(labelStyle.Render(" ($ n/a)"))
	}

	b.WriteString(labelStyle.Render(" mcap "))
	b.WriteString(fmt.Sprintf("%.2f SOL", s.Update.MarketCap))

	b.WriteString(labelStyle.Render(" invested "))
	b.WriteString(fmt.Sprintf("%.4f SOL", s.PnL.Invested))

	st, arrow := profitStyle(s.PnL.Profit)
	b.WriteString(labelStyle.Render(" profit "))
	b.WriteString(st.Render(fmt.Sprintf("%s SOL (%s%%) %s",
		signed(s.PnL.Profit, 4), signed(s.PnL.ProfitPercent(), 2), arrow)))

	return b.String()
}
