// internal/ledger/jsonfile_test.go
package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewPurchaseRecord(t *testing.T) {
	ts := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

	rec, err := NewPurchaseRecord("mintA", "walletA", 0.5, 1_000_000, ts)
	require.NoError(t, err)
	assert.Equal(t, 0.5/1_000_000, rec.UnitPrice)
	assert.Equal(t, ts, rec.Timestamp)

	for _, delta := range []float64{0, -10} {
		_, err := NewPurchaseRecord("mintA", "walletA", 0.5, delta, ts)
		assert.ErrorIs(t, err, ErrNonPositiveDelta)
	}
}

func TestJSONFileStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "purchases.json")
	store := NewJSONFileStore(path, zaptest.NewLogger(t))

	records, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, records)

	first, _ := NewPurchaseRecord("mintA", "w1", 1.0, 2_000_000, time.Now())
	second, _ := NewPurchaseRecord("mintB", "w2", 0.2, 100, time.Now())
	third, _ := NewPurchaseRecord("mintA", "w3", 0.3, 300, time.Now())
	for _, r := range []PurchaseRecord{first, second, third} {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "w1", all[0].WalletAddress)
	assert.Equal(t, "w3", all[2].WalletAddress)

	onlyA, err := store.List(ctx, "mintA")
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	// file must stay a plain JSON array
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 3)
	assert.Contains(t, raw[0], "spentAmount")
	assert.Contains(t, raw[0], "unitPrice")
}

func TestJSONFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "purchases.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewJSONFileStore(path, zaptest.NewLogger(t))
	records, err := store.List(ctx, "mintA")
	require.NoError(t, err)
	assert.Empty(t, records)

	rec, _ := NewPurchaseRecord("mintA", "w1", 1.0, 10, time.Now())
	require.NoError(t, store.Append(ctx, rec))

	records, err = store.List(ctx, "mintA")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	backups, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
