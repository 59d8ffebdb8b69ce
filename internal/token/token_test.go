// internal/token/token_test.go
package token

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfleet/internal/events"
	"github.com/rovshanmuradov/pumpfleet/internal/tradeapi"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegistryCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "token_list.json")
	reg := NewRegistry(path, zaptest.NewLogger(t))

	_, err := reg.Current()
	assert.ErrorIs(t, err, ErrNoTokens)

	first := solana.NewWallet().PublicKey().String()
	second := solana.NewWallet().PublicKey().String()
	require.NoError(t, reg.Append(Record{Mint: first, Name: "One", Symbol: "ONE"}))
	require.NoError(t, reg.Append(Record{Mint: second, Name: "Two", Symbol: "TWO"}))

	cur, err := reg.Current()
	require.NoError(t, err)
	assert.Equal(t, second, cur.Mint)

	mint, err := reg.CurrentMint()
	require.NoError(t, err)
	assert.Equal(t, second, mint.String())

	all, err := reg.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRegistryEmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0o644))
	_, err := NewRegistry(empty, zaptest.NewLogger(t)).Current()
	assert.ErrorIs(t, err, ErrNoTokens)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	reg := NewRegistry(bad, zaptest.NewLogger(t))
	_, err = reg.Current()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTokens)
	assert.Error(t, reg.Append(Record{Mint: "x"}), "never overwrite a file we could not parse")
}

func TestLoadMetadataConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Fleet Coin
symbol: FLEET
description: test token
image_path: images/logo.png
twitter: https://x.com/fleet
show_name: true
`), 0o644))

	cfg, err := LoadMetadataConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Fleet Coin", cfg.Name)
	assert.Equal(t, "FLEET", cfg.Symbol)
	assert.True(t, cfg.ShowName)
	assert.Equal(t, filepath.Join(dir, "images", "logo.png"), cfg.ImagePath)

	require.NoError(t, os.WriteFile(path, []byte("name: NoSymbol\n"), 0o644))
	_, err = LoadMetadataConfig(path)
	assert.Error(t, err)
}

type MockAPI struct {
	form      tradeapi.MetadataForm
	requests  []tradeapi.TradeRequest
	uploadErr error
}

func (m *MockAPI) UploadMetadata(_ context.Context, form tradeapi.MetadataForm) (tradeapi.TokenMetadata, error) {
	m.form = form
	if m.uploadErr != nil {
		return tradeapi.TokenMetadata{}, m.uploadErr
	}
	return tradeapi.TokenMetadata{Name: form.Name, Symbol: form.Symbol, URI: "https://ipfs.io/ipfs/Qm123"}, nil
}

func (m *MockAPI) BuildTransaction(_ context.Context, req tradeapi.TradeRequest) ([]byte, error) {
	m.requests = append(m.requests, req)
	return []byte{1, 2, 3}, nil
}

type MockSender struct {
	signers []solana.PrivateKey
}

func (m *MockSender) SendSerialized(_ context.Context, _ []byte, signers ...solana.PrivateKey) (solana.Signature, error) {
	m.signers = signers
	return solana.Signature{0x42}, nil
}

type fixedConfirmer bool

func (c fixedConfirmer) AwaitConfirmation(context.Context, solana.Signature) bool { return bool(c) }

func newCreator(t *testing.T, confirmed bool) (*Creator, *MockAPI, *MockSender, *Registry, *events.Memory) {
	t.Helper()
	api := &MockAPI{}
	sender := &MockSender{}
	reg := NewRegistry(filepath.Join(t.TempDir(), "token_list.json"), zaptest.NewLogger(t))
	pub := &events.Memory{}
	c := NewCreator(CreatorConfig{
		API:         api,
		Sender:      sender,
		Confirmer:   fixedConfirmer(confirmed),
		Registry:    reg,
		Publisher:   pub,
		Slippage:    10,
		PriorityFee: 0.0005,
		Pool:        "pump",
		Logger:      zaptest.NewLogger(t),
	})
	c.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return c, api, sender, reg, pub
}

func TestCreatorCreate(t *testing.T) {
	c, api, sender, reg, pub := newCreator(t, true)
	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	c.newMint = func() (solana.PrivateKey, error) { return mintKey, nil }

	dev, err := wallet.Generate("dev")
	require.NoError(t, err)

	img := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))

	rec, err := c.Create(context.Background(), dev, MetadataConfig{
		Name: "Fleet Coin", Symbol: "FLEET", Description: "d", ImagePath: img,
	}, 1.0)
	require.NoError(t, err)

	assert.Equal(t, mintKey.PublicKey().String(), rec.Mint)
	assert.Equal(t, solana.Signature{0x42}.String(), rec.TxSignature)
	assert.Equal(t, []byte("png"), api.form.Image)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, tradeapi.ActionCreate, req.Action)
	assert.Equal(t, dev.Address(), req.PublicKey)
	assert.Equal(t, rec.Mint, req.Mint)
	assert.Equal(t, 1.0, req.Amount)
	assert.Equal(t, "true", req.DenominatedInSol)
	require.NotNil(t, req.TokenMetadata)
	assert.Equal(t, "https://ipfs.io/ipfs/Qm123", req.TokenMetadata.URI)

	require.Len(t, sender.signers, 2)
	assert.Equal(t, dev.PrivateKey, sender.signers[0])
	assert.Equal(t, mintKey, sender.signers[1])

	cur, err := reg.Current()
	require.NoError(t, err)
	assert.Equal(t, rec, cur)
	assert.Len(t, pub.OfType(events.TokenCreated), 1)
}

func TestCreatorNotConfirmedLeavesRegistryUntouched(t *testing.T) {
	c, _, _, reg, pub := newCreator(t, false)
	dev, err := wallet.Generate("dev")
	require.NoError(t, err)

	_, err = c.Create(context.Background(), dev, MetadataConfig{Name: "A", Symbol: "A"}, 0.5)
	assert.ErrorIs(t, err, ErrCreateNotConfirmed)

	_, err = reg.Current()
	assert.ErrorIs(t, err, ErrNoTokens)
	assert.Empty(t, pub.Events())
}

func TestCreatorUploadFailure(t *testing.T) {
	c, api, _, _, _ := newCreator(t, true)
	api.uploadErr = errors.New("ipfs 500")
	dev, err := wallet.Generate("dev")
	require.NoError(t, err)

	_, err = c.Create(context.Background(), dev, MetadataConfig{Name: "A", Symbol: "A"}, 0.5)
	require.Error(t, err)
	assert.Empty(t, api.requests)
}
