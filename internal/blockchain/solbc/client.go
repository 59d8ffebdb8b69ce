// internal/blockchain/solbc/client.go
package solbc

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// RPC – подмножество методов *rpc.Client, которые использует бот.
// Вынесено в интерфейс, чтобы тесты могли подменять узел.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    RPC
	opts   TransactionOptions
	logger *zap.Logger
}

// NewClient создаёт клиент поверх публичного RPC узла.
func NewClient(rpcURL string, opts TransactionOptions, logger *zap.Logger) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), opts, logger)
}

// NewClientWithRPC принимает готовую реализацию RPC (моки в тестах).
func NewClientWithRPC(r RPC, opts TransactionOptions, logger *zap.Logger) *Client {
	if opts.PreflightCommitment == "" {
		opts.PreflightCommitment = rpc.CommitmentConfirmed
	}
	return &Client{
		rpc:    r,
		opts:   opts,
		logger: logger.Named("solbc-client"),
	}
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, wrapRPCError(err, "getLatestBlockhash")
	}
	return result.Value.Blockhash, nil
}

// GetSignatureStatuses получает статусы транзакций (с поиском по истории).
func (c *Client) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, searchTransactionHistory, signatures...)
	if err != nil {
		return nil, wrapRPCError(err, "getSignatureStatuses")
	}
	return result, nil
}

// GetBalance возвращает баланс в лампортах.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetBalance error", zap.String("account", pubkey.String()), zap.Error(err))
		return 0, wrapRPCError(err, "getBalance")
	}
	return result.Value, nil
}

// SendTransaction отправляет уже подписанную транзакцию.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       c.opts.SkipPreflight,
		PreflightCommitment: c.opts.PreflightCommitment,
	})
	if err != nil {
		logSendError(c.logger, err)
		return solana.Signature{}, wrapRPCError(err, "sendTransaction")
	}
	return sig, nil
}
