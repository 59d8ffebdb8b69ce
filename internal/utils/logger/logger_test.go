package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	cfg := DefaultConfig()
	cfg.LogFile = path
	cfg.Compress = false

	l, err := New(cfg)
	require.NoError(t, err)

	l.WithOperation("buy").Info("batch started")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operation":"buy"`)
	assert.Contains(t, string(data), `"correlation_id"`)
	assert.Contains(t, string(data), `"level":"INFO"`)
}

func TestTrackPerformance(t *testing.T) {
	l := Wrap(zaptest.NewLogger(t))
	done := l.TrackPerformance("confirm")
	done()
}
