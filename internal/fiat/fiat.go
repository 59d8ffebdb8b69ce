// internal/fiat/fiat.go
package fiat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

var (
	ErrRateLimited = errors.New("fiat rate request throttled")
	ErrNoQuote     = errors.New("fiat quote missing from response")
)

// Provider returns the fiat value of one unit of the native currency.
type Provider interface {
	Rate(ctx context.Context) (float64, error)
}

type Config struct {
	URL               string
	RequestsPerSecond float64
	CacheTTL          time.Duration
	Timeout           time.Duration
}

// Client is a simple-price API client (CoinGecko format:
// {"solana":{"usd":142.1}}). Quotes are cached for CacheTTL and upstream
// calls are throttled; a throttled call serves the last quote if one exists.
type Client struct {
	http    *http.Client
	url     string
	id      string
	vs      string
	ttl     time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	quote    float64
	quotedAt time.Time
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse fiat url: %w", err)
	}
	id, vs := u.Query().Get("ids"), u.Query().Get("vs_currencies")
	if id == "" {
		id = "solana"
	}
	if vs == "" {
		vs = "usd"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		url:     cfg.URL,
		id:      id,
		vs:      vs,
		ttl:     cfg.CacheTTL,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("fiat"),
		now:     time.Now,
	}, nil
}

func (c *Client) Rate(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	haveQuote := !c.quotedAt.IsZero()
	if haveQuote && c.now().Sub(c.quotedAt) < c.ttl {
		return c.quote, nil
	}
	if !c.limiter.Allow() {
		if haveQuote {
			return c.quote, nil
		}
		return 0, ErrRateLimited
	}

	q, err := c.fetch(ctx)
	if err != nil {
		c.logger.Debug("Fiat rate fetch failed", zap.Error(err))
		return 0, err
	}
	c.quote, c.quotedAt = q, c.now()
	return q, nil
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fiat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("fiat request: status %d", resp.StatusCode)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode fiat response: %w", err)
	}
	q, ok := body[c.id][c.vs]
	if !ok || q <= 0 {
		return 0, fmt.Errorf("%w: %s/%s", ErrNoQuote, c.id, c.vs)
	}
	return q, nil
}

// Static always returns the same rate. Used when no fiat endpoint is wanted.
type Static float64

func (s Static) Rate(context.Context) (float64, error) { return float64(s), nil }
