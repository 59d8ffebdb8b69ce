// internal/monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rovshanmuradov/pumpfleet/internal/events"
	"github.com/rovshanmuradov/pumpfleet/internal/fiat"
	"github.com/rovshanmuradov/pumpfleet/internal/ledger"
	"go.uber.org/zap"
)

const (
	DefaultReconnectDelay    = time.Second
	DefaultMaxReconnectDelay = 30 * time.Second
	defaultFiatTimeout       = 3 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("price monitor already running")
	ErrStopped        = errors.New("price monitor stopped")
)

// State of the feed session.
type State int

const (
	Disconnected State = iota
	Connecting
	Subscribed
	Stopped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var allStates = []string{Disconnected.String(), Connecting.String(), Subscribed.String(), Stopped.String()}

// Snapshot is everything derived from one valid market update.
type Snapshot struct {
	Mint          string
	Time          time.Time
	Update        MarketUpdate
	PriceSol      float64
	FiatRate      float64
	FiatAvailable bool
	PnL           PnL
}

// PriceFiat returns the token price in fiat, or false when the rate was unavailable.
func (s Snapshot) PriceFiat() (float64, bool) {
	if !s.FiatAvailable {
		return 0, false
	}
	return s.PriceSol * s.FiatRate, true
}

type Recorder interface {
	Record(ctx context.Context, s Snapshot) error
}

type Observer interface {
	SetFeedState(state string, all []string)
	RecordFeedReconnect()
	RecordFeedMessage(kind string)
}

type Config struct {
	URL               string
	Mint              string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HandshakeTimeout  time.Duration

	Ledger    ledger.Store
	Fiat      fiat.Provider
	Recorder  Recorder
	Publisher events.Publisher
	Observer  Observer
	Alerts    *AlertManager // optional
	Logger    *zap.Logger

	// OnUpdate is called from the read loop for every valid update.
	OnUpdate func(Snapshot)
}

// PriceMonitor keeps one subscription to a token's trade feed alive until
// Stop. Only one session is ever open at a time.
type PriceMonitor struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	running bool
	stopped bool
	cancel  context.CancelFunc
	conn    *websocket.Conn
	last    *Snapshot
}

func New(cfg Config) (*PriceMonitor, error) {
	if cfg.Mint == "" {
		return nil, errors.New("price monitor: mint is required")
	}
	if cfg.URL == "" {
		return nil, errors.New("price monitor: feed url is required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = max(DefaultMaxReconnectDelay, cfg.ReconnectDelay)
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}

	return &PriceMonitor{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: cfg.Logger.Named("price-monitor").With(zap.String("mint", cfg.Mint)),
		state:  Disconnected,
	}, nil
}

func (m *PriceMonitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Last returns the most recent snapshot, if any.
func (m *PriceMonitor) Last() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Snapshot{}, false
	}
	return *m.last, true
}

func (m *PriceMonitor) setState(s State) {
	m.mu.Lock()
	if m.state == Stopped {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		m.logger.Debug("Feed state", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
	if m.cfg.Observer != nil {
		m.cfg.Observer.SetFeedState(s.String(), allStates)
	}
}

// Run connects, subscribes and reconnects until ctx is done or Stop is
// called. It returns nil after Stop and ctx.Err() on cancellation.
func (m *PriceMonitor) Run(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.stopped:
		m.mu.Unlock()
		return ErrStopped
	case m.running:
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	sessionID := uuid.New().String()
	logger := m.logger.With(zap.String("session_id", sessionID))
	logger.Info("📡 Price monitoring started", zap.String("feed", m.cfg.URL))
	m.publish(ctx, &events.MonitoringStartedEvent{
		BaseEvent: events.NewBase(events.MonitoringStarted),
		SessionID: sessionID,
		TokenMint: m.cfg.Mint,
	})

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.ReconnectDelay
	bo.MaxInterval = m.cfg.MaxReconnectDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	for {
		m.setState(Connecting)
		err := m.session(ctx, logger, bo)
		m.setState(Disconnected)

		if ctx.Err() != nil {
			return m.finish(logger, sessionID, ctx.Err())
		}

		wait := bo.NextBackOff()
		logger.Warn("Feed disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("retry_in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return m.finish(logger, sessionID, ctx.Err())
		case <-timer.C:
		}
		if m.cfg.Observer != nil {
			m.cfg.Observer.RecordFeedReconnect()
		}
	}
}

func (m *PriceMonitor) finish(logger *zap.Logger, sessionID string, err error) error {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()

	reason := "cancelled"
	if stopped {
		reason, err = "stopped", nil
	}
	logger.Info("Price monitoring finished", zap.String("reason", reason))
	m.publish(context.Background(), &events.MonitoringStoppedEvent{
		BaseEvent: events.NewBase(events.MonitoringStopped),
		SessionID: sessionID,
		TokenMint: m.cfg.Mint,
		Reason:    reason,
	})
	return err
}

// Stop is terminal: the open session is closed and no reconnect is scheduled.
func (m *PriceMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	m.state = Stopped
	if m.cancel != nil {
		m.cancel()
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
	if m.cfg.Observer != nil {
		m.cfg.Observer.SetFeedState(Stopped.String(), allStates)
	}
}

// session runs one connection from dial to close.
func (m *PriceMonitor) session(ctx context.Context, logger *zap.Logger, bo *backoff.ExponentialBackOff) error {
	conn, _, err := m.dialer.DialContext(ctx, m.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = conn.Close()
		return ErrStopped
	}
	m.conn = conn
	m.mu.Unlock()

	release := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		release()
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		_ = conn.Close()
	}()

	if err := conn.WriteJSON(newSubscribeMessage(m.cfg.Mint)); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	m.setState(Subscribed)
	bo.Reset()
	logger.Info("✅ Subscribed to token trades")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read feed: %w", err)
		}
		m.handleMessage(ctx, logger, data)
	}
}

func (m *PriceMonitor) handleMessage(ctx context.Context, logger *zap.Logger, data []byte) {
	update, err := DecodeUpdate(data)
	if err != nil {
		logger.Debug("Ignoring feed message", zap.Error(err), zap.ByteString("raw", truncate(data, 256)))
		m.recordMessage("ignored")
		return
	}
	if update.Mint != "" && update.Mint != m.cfg.Mint {
		m.recordMessage("ignored")
		return
	}
	m.recordMessage("update")

	snap := Snapshot{
		Mint:     m.cfg.Mint,
		Time:     time.Now().UTC(),
		Update:   update,
		PriceSol: update.Price(),
	}

	if m.cfg.Fiat != nil {
		fctx, cancel := context.WithTimeout(ctx, defaultFiatTimeout)
		rate, err := m.cfg.Fiat.Rate(fctx)
		cancel()
		if err != nil {
			logger.Debug("Fiat rate unavailable", zap.Error(err))
		} else {
			snap.FiatRate = rate
			snap.FiatAvailable = true
		}
	}

	var records []ledger.PurchaseRecord
	if m.cfg.Ledger != nil {
		records, err = m.cfg.Ledger.List(ctx, m.cfg.Mint)
		if err != nil {
			logger.Warn("Ledger unavailable, treating as empty", zap.Error(err))
			records = nil
		}
	}
	snap.PnL = ComputePnL(records, snap.PriceSol)

	m.mu.Lock()
	m.last = &snap
	m.mu.Unlock()

	if m.cfg.Recorder != nil {
		if err := m.cfg.Recorder.Record(ctx, snap); err != nil {
			logger.Warn("Failed to record snapshot", zap.Error(err))
		}
	}

	ev := &events.PriceUpdatedEvent{
		BaseEvent:    events.NewBase(events.PriceUpdated),
		TokenMint:    m.cfg.Mint,
		TxType:       update.TxType,
		MarketCapSol: update.MarketCap,
		PriceSol:     snap.PriceSol,
		Invested:     snap.PnL.Invested,
		Profit:       snap.PnL.Profit,
	}
	if usd, ok := snap.PriceFiat(); ok {
		ev.PriceUSD = &usd
	}
	m.publish(ctx, ev)

	for _, a := range m.cfg.Alerts.Check(snap) {
		m.publish(ctx, &events.AlertEvent{
			BaseEvent:  events.NewBase(events.AlertTriggered),
			TokenMint:  a.TokenMint,
			AlertType:  string(a.Type),
			Severity:   a.Severity,
			Message:    a.Message,
			PriceSol:   a.PriceSol,
			PnLPercent: a.PnLPercent,
			Threshold:  a.Threshold,
		})
	}

	if m.cfg.OnUpdate != nil {
		m.cfg.OnUpdate(snap)
	}
}

func (m *PriceMonitor) recordMessage(kind string) {
	if m.cfg.Observer != nil {
		m.cfg.Observer.RecordFeedMessage(kind)
	}
}

func (m *PriceMonitor) publish(ctx context.Context, ev events.Event) {
	if err := m.cfg.Publisher.Publish(ctx, ev); err != nil {
		m.logger.Debug("Failed to publish event", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
