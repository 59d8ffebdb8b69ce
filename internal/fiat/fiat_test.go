// internal/fiat/fiat_test.go
package fiat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newServer(t *testing.T, body string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "solana", r.URL.Query().Get("ids"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRateFetchesAndCaches(t *testing.T) {
	srv, hits := newServer(t, `{"solana":{"usd":142.5}}`, http.StatusOK)
	c, err := NewClient(Config{
		URL:      srv.URL + "/simple/price?ids=solana&vs_currencies=usd",
		CacheTTL: time.Minute,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		q, err := c.Rate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 142.5, q)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestRateThrottledServesStaleQuote(t *testing.T) {
	srv, hits := newServer(t, `{"solana":{"usd":100}}`, http.StatusOK)
	c, err := NewClient(Config{
		URL:               srv.URL + "/?ids=solana&vs_currencies=usd",
		RequestsPerSecond: 0.001,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	q, err := c.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, q)

	// ttl is zero so the cache is always stale; the limiter keeps us off the wire
	q, err = c.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, q)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRateErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "server error", body: `oops`, status: http.StatusInternalServerError},
		{name: "bad json", body: `{`, status: http.StatusOK},
		{name: "missing currency", body: `{"solana":{"eur":90}}`, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.body, tt.status)
			c, err := NewClient(Config{URL: srv.URL + "/?ids=solana&vs_currencies=usd"}, zaptest.NewLogger(t))
			require.NoError(t, err)
			_, err = c.Rate(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestRateThrottledWithoutQuote(t *testing.T) {
	srv, _ := newServer(t, `oops`, http.StatusBadGateway)
	c, err := NewClient(Config{URL: srv.URL + "/?ids=solana", RequestsPerSecond: 0.001}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.Rate(context.Background())
	require.Error(t, err)
	_, err = c.Rate(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestStatic(t *testing.T) {
	q, err := Static(150).Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, q)
}
