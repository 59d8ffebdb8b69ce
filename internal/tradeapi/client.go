// internal/tradeapi/client.go
package tradeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

type Action string

const (
	ActionBuy    Action = "buy"
	ActionSell   Action = "sell"
	ActionCreate Action = "create"
)

var (
	ErrBadStatus     = errors.New("unexpected trade API status")
	ErrEmptyResponse = errors.New("trade API returned an empty transaction")
)

// TradeRequest is the body of a trade-local call. The response is an
// unsigned serialized transaction.
type TradeRequest struct {
	PublicKey        string         `json:"publicKey"`
	Action           Action         `json:"action"`
	Mint             string         `json:"mint"`
	Amount           float64        `json:"amount"`
	DenominatedInSol string         `json:"denominatedInSol"`
	Slippage         int            `json:"slippage"`
	PriorityFee      float64        `json:"priorityFee"`
	Pool             string         `json:"pool"`
	TokenMetadata    *TokenMetadata `json:"tokenMetadata,omitempty"`
}

type TokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// Observer receives the outcome of every HTTP attempt.
type Observer interface {
	RecordTradeAPIRequest(err error)
}

type Config struct {
	BaseURL     string
	MetadataURL string
	Retries     int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

type Client struct {
	http     *http.Client
	config   Config
	logger   *zap.Logger
	observer Observer
}

func NewClient(cfg Config, logger *zap.Logger, observer Observer) *Client {
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		config:   cfg,
		logger:   logger.Named("trade-api"),
		observer: observer,
	}
}

// BuildTransaction requests an unsigned transaction for req.
func (c *Client) BuildTransaction(ctx context.Context, req TradeRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode trade request: %w", err)
	}

	url := c.config.BaseURL + "/api/trade-local"
	operation := func() ([]byte, error) {
		blob, err := c.post(ctx, url, "application/json", body)
		c.record(err)
		return blob, err
	}
	blob, err := c.retry(ctx, operation)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Action, req.Mint, err)
	}
	c.logger.Debug("Trade transaction received",
		zap.String("action", string(req.Action)),
		zap.String("mint", req.Mint),
		zap.Int("bytes", len(blob)))
	return blob, nil
}

func (c *Client) retry(ctx context.Context, operation func() ([]byte, error)) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.config.RetryDelay
	policy.MaxInterval = c.config.RetryDelay * 8
	policy.RandomizationFactor = 0

	notify := func(err error, d time.Duration) {
		c.logger.Warn("Trade API request failed, retrying", zap.Error(err), zap.Duration("backoff", d))
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.config.Retries)),
		backoff.WithNotify(notify))
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(statusErr)
		}
		return nil, statusErr
	}
	if len(data) == 0 {
		return nil, backoff.Permanent(ErrEmptyResponse)
	}
	return data, nil
}

func (c *Client) record(err error) {
	if c.observer != nil {
		c.observer.RecordTradeAPIRequest(err)
	}
}
