package monitor

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AlertType represents different types of alerts
type AlertType string

const (
	AlertProfitTarget AlertType = "profit_target"
	AlertLossLimit    AlertType = "loss_limit"
	AlertLargeTrade   AlertType = "large_trade"
)

// Alert is a threshold crossing on a snapshot.
type Alert struct {
	Type       AlertType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	TokenMint  string    `json:"token_mint"`
	Message    string    `json:"message"`
	Severity   string    `json:"severity"` // "info", "warning", "critical"
	PriceSol   float64   `json:"price_sol"`
	PnLPercent float64   `json:"pnl_percent"`
	Threshold  float64   `json:"threshold"`
}

// AlertConfig holds alert thresholds. A zero threshold disables its alert.
type AlertConfig struct {
	ProfitTargetPercent float64
	LossLimitPercent    float64
	// LargeTradeSol flags single feed trades worth at least this much SOL.
	LargeTradeSol float64
	// Cooldown between two alerts of the same type.
	Cooldown time.Duration
}

func (c AlertConfig) Enabled() bool {
	return c.ProfitTargetPercent > 0 || c.LossLimitPercent > 0 || c.LargeTradeSol > 0
}

// AlertManager checks snapshots against the thresholds.
type AlertManager struct {
	mu     sync.Mutex
	config AlertConfig
	logger *zap.Logger
	last   map[AlertType]time.Time
	now    func() time.Time
}

func NewAlertManager(config AlertConfig, logger *zap.Logger) *AlertManager {
	return &AlertManager{
		config: config,
		logger: logger.Named("alerts"),
		last:   make(map[AlertType]time.Time),
		now:    time.Now,
	}
}

// Check returns the alerts s triggers. P&L alerts need a non-empty ledger.
func (am *AlertManager) Check(s Snapshot) []Alert {
	if am == nil {
		return nil
	}
	am.mu.Lock()
	defer am.mu.Unlock()

	now := am.now()
	pct := s.PnL.ProfitPercent()
	var triggered []Alert

	if am.config.ProfitTargetPercent > 0 && s.PnL.Invested > 0 && pct >= am.config.ProfitTargetPercent {
		triggered = am.fire(triggered, now, Alert{
			Type:      AlertProfitTarget,
			Message:   fmt.Sprintf("Profit target reached: %+.1f%% (%.4f SOL)", pct, s.PnL.Profit),
			Severity:  "info",
			Threshold: am.config.ProfitTargetPercent,
		}, s)
	}

	if am.config.LossLimitPercent > 0 && s.PnL.Invested > 0 && pct <= -am.config.LossLimitPercent {
		triggered = am.fire(triggered, now, Alert{
			Type:      AlertLossLimit,
			Message:   fmt.Sprintf("Loss limit hit: %.1f%% (%.4f SOL)", pct, s.PnL.Profit),
			Severity:  "critical",
			Threshold: -am.config.LossLimitPercent,
		}, s)
	}

	if am.config.LargeTradeSol > 0 {
		volume := s.Update.TokenAmount * s.PriceSol
		if volume >= am.config.LargeTradeSol {
			triggered = am.fire(triggered, now, Alert{
				Type:      AlertLargeTrade,
				Message:   fmt.Sprintf("Large %s: %.2f SOL", s.Update.TxType, volume),
				Severity:  "warning",
				Threshold: am.config.LargeTradeSol,
			}, s)
		}
	}
	return triggered
}

func (am *AlertManager) fire(out []Alert, now time.Time, a Alert, s Snapshot) []Alert {
	if last, ok := am.last[a.Type]; ok && now.Sub(last) < am.config.Cooldown {
		return out
	}
	am.last[a.Type] = now

	a.Timestamp = now.UTC()
	a.TokenMint = s.Mint
	a.PriceSol = s.PriceSol
	a.PnLPercent = s.PnL.ProfitPercent()

	fields := []zap.Field{
		zap.String("type", string(a.Type)),
		zap.String("token", a.TokenMint),
		zap.String("message", a.Message),
	}
	switch a.Severity {
	case "critical":
		am.logger.Error("Alert triggered", fields...)
	case "warning":
		am.logger.Warn("Alert triggered", fields...)
	default:
		am.logger.Info("Alert triggered", fields...)
	}
	return append(out, a)
}
