// internal/token/creator.go
package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfleet/internal/events"
	"github.com/rovshanmuradov/pumpfleet/internal/tradeapi"
	"github.com/rovshanmuradov/pumpfleet/internal/wallet"
	"go.uber.org/zap"
)

var ErrCreateNotConfirmed = errors.New("token creation not confirmed")

// API is the part of the trade API the creator needs.
type API interface {
	UploadMetadata(ctx context.Context, form tradeapi.MetadataForm) (tradeapi.TokenMetadata, error)
	BuildTransaction(ctx context.Context, req tradeapi.TradeRequest) ([]byte, error)
}

type Broadcaster interface {
	SendSerialized(ctx context.Context, blob []byte, signers ...solana.PrivateKey) (solana.Signature, error)
}

type Confirmer interface {
	AwaitConfirmation(ctx context.Context, signature solana.Signature) bool
}

type CreatorConfig struct {
	API         API
	Sender      Broadcaster
	Confirmer   Confirmer
	Registry    *Registry
	Publisher   events.Publisher
	Slippage    int
	PriorityFee float64
	Pool        string
	Logger      *zap.Logger
}

// Creator launches a token from the dev wallet with an initial buy.
type Creator struct {
	cfg     CreatorConfig
	logger  *zap.Logger
	newMint func() (solana.PrivateKey, error)
	now     func() time.Time
}

func NewCreator(cfg CreatorConfig) *Creator {
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	return &Creator{
		cfg:     cfg,
		logger:  cfg.Logger.Named("token-creator"),
		newMint: solana.NewRandomPrivateKey,
		now:     time.Now,
	}
}

// Create загружает метаданные, создает токен и сразу покупает initialBuySol.
// Запись попадает в реестр только после подтверждения.
func (c *Creator) Create(ctx context.Context, dev *wallet.Wallet, meta MetadataConfig, initialBuySol float64) (Record, error) {
	if err := meta.Validate(); err != nil {
		return Record{}, err
	}
	if initialBuySol < 0 {
		return Record{}, fmt.Errorf("initial buy must not be negative, got %v", initialBuySol)
	}

	mintKey, err := c.newMint()
	if err != nil {
		return Record{}, fmt.Errorf("generate mint keypair: %w", err)
	}
	mint := mintKey.PublicKey()
	logger := c.logger.With(
		zap.String("mint", mint.String()),
		zap.String("dev", dev.Address()),
		zap.String("symbol", meta.Symbol))

	form := tradeapi.MetadataForm{
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Description: meta.Description,
		Twitter:     meta.Twitter,
		Telegram:    meta.Telegram,
		Website:     meta.Website,
		ShowName:    meta.ShowName,
	}
	if meta.ImagePath != "" {
		img, err := os.ReadFile(meta.ImagePath)
		if err != nil {
			return Record{}, fmt.Errorf("read token image: %w", err)
		}
		form.Image, form.ImageName = img, meta.ImagePath
	}

	tokenMeta, err := c.cfg.API.UploadMetadata(ctx, form)
	if err != nil {
		return Record{}, fmt.Errorf("upload metadata: %w", err)
	}
	logger.Info("Metadata uploaded", zap.String("uri", tokenMeta.URI))

	blob, err := c.cfg.API.BuildTransaction(ctx, tradeapi.TradeRequest{
		PublicKey:        dev.Address(),
		Action:           tradeapi.ActionCreate,
		Mint:             mint.String(),
		Amount:           initialBuySol,
		DenominatedInSol: "true",
		Slippage:         c.cfg.Slippage,
		PriorityFee:      c.cfg.PriorityFee,
		Pool:             c.cfg.Pool,
		TokenMetadata:    &tokenMeta,
	})
	if err != nil {
		return Record{}, fmt.Errorf("build create transaction: %w", err)
	}

	// mint подписывает вместе с dev
	sig, err := c.cfg.Sender.SendSerialized(ctx, blob, dev.PrivateKey, mintKey)
	if err != nil {
		return Record{}, fmt.Errorf("broadcast create transaction: %w", err)
	}
	logger = logger.With(zap.String("signature", sig.String()))

	if !c.cfg.Confirmer.AwaitConfirmation(ctx, sig) {
		return Record{}, fmt.Errorf("%w: %s", ErrCreateNotConfirmed, sig)
	}

	rec := Record{
		Mint:        mint.String(),
		CreatedAt:   c.now().UTC(),
		TxSignature: sig.String(),
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Description: meta.Description,
	}
	if err := c.cfg.Registry.Append(rec); err != nil {
		// транзакция уже в сети, поэтому mint возвращаем вместе с ошибкой
		return rec, fmt.Errorf("token created but not registered: %w", err)
	}

	if err := c.cfg.Publisher.Publish(ctx, &events.TokenCreatedEvent{
		BaseEvent: events.NewBase(events.TokenCreated),
		TokenMint: rec.Mint,
		Name:      rec.Name,
		Symbol:    rec.Symbol,
		Signature: rec.TxSignature,
	}); err != nil {
		logger.Warn("Failed to publish event", zap.Error(err))
	}

	logger.Info("🎉 Token created", zap.Float64("initial_buy_sol", initialBuySol))
	return rec, nil
}
