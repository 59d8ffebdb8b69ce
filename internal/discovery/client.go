// internal/discovery/client.go
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRankURL   = "https://gmgn.ai/defi/quotation/v1/rank/sol/pump"
	DefaultTokensURL = "https://pumpportal.fun/api/tokens"
	chartLinkBase    = "https://dexrabbit.com/solana/pumpfun/"
)

// browserHeaders делают запрос похожим на браузерный, иначе rank API отвечает 403.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://gmgn.ai/",
	"Origin":          "https://gmgn.ai/",
	"Cache-Control":   "no-cache",
}

// Entry is a raw token object as returned by the APIs. Kept untyped so jq
// filters see every field.
type Entry map[string]any

func (e Entry) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := e[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (e Entry) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := e[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func (e Entry) Mint() string { return e.str("mint", "address") }

func (e Entry) MarketCap() (float64, bool) {
	return e.num("marketCap", "market_cap", "usd_market_cap")
}

// ParsedToken is one line of parsed_tokens.json.
type ParsedToken struct {
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	ChartLink   string  `json:"chartLink"`
	Mint        string  `json:"mint"`
	MarketCap   float64 `json:"marketCap"`
}

func ChartLink(mint string) string { return chartLinkBase + mint }

type Client struct {
	http      *http.Client
	rankURL   string
	tokensURL string
	logger    *zap.Logger
}

func NewClient(rankURL, tokensURL string, logger *zap.Logger) *Client {
	if rankURL == "" {
		rankURL = DefaultRankURL
	}
	if tokensURL == "" {
		tokensURL = DefaultTokensURL
	}
	return &Client{
		http:      &http.Client{Timeout: 20 * time.Second},
		rankURL:   rankURL,
		tokensURL: tokensURL,
		logger:    logger.Named("discovery"),
	}
}

func (c *Client) get(ctx context.Context, rawURL string, browser bool, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if browser {
		for k, v := range browserHeaders {
			req.Header.Set(k, v)
		}
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s failed: %d %s", req.URL.Host, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Host, err)
	}
	return nil
}

// FetchRanked returns the top pump tokens by market cap.
func (c *Client) FetchRanked(ctx context.Context, limit int) ([]Entry, error) {
	u, err := url.Parse(c.rankURL)
	if err != nil {
		return nil, fmt.Errorf("parse rank url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("orderby", "marketcap")
	q.Set("direction", "desc")
	q.Set("pump", "true")
	u.RawQuery = q.Encode()

	var body struct {
		List []Entry `json:"list"`
		Data struct {
			List []Entry `json:"list"`
			Rank []Entry `json:"rank"`
		} `json:"data"`
	}
	if err := c.get(ctx, u.String(), true, &body); err != nil {
		return nil, err
	}

	switch {
	case len(body.List) > 0:
		return body.List, nil
	case len(body.Data.List) > 0:
		return body.Data.List, nil
	default:
		return body.Data.Rank, nil
	}
}

// FetchTokens returns the full token list from the tokens endpoint.
func (c *Client) FetchTokens(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := c.get(ctx, c.tokensURL, false, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FilterByMarketCap keeps min <= marketCap <= max and adds the chart link.
// Entries without a market cap are dropped.
func FilterByMarketCap(entries []Entry, minCap, maxCap float64) []ParsedToken {
	out := make([]ParsedToken, 0)
	for _, e := range entries {
		mcap, ok := e.MarketCap()
		if !ok || mcap < minCap || mcap > maxCap {
			continue
		}
		mint := e.Mint()
		out = append(out, ParsedToken{
			Name:        e.str("name"),
			Symbol:      e.str("symbol"),
			Description: e.str("description"),
			ImageURL:    e.str("imageUrl", "image_uri", "logo"),
			ChartLink:   ChartLink(mint),
			Mint:        mint,
			MarketCap:   mcap,
		})
	}
	return out
}
