// internal/blockchain/solbc/signer.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

var ErrEmptyTransaction = errors.New("empty transaction blob")

// SignAndSend подписывает транзакцию всеми переданными ключами и отправляет её.
func (c *Client) SignAndSend(ctx context.Context, tx *solana.Transaction, signers ...solana.PrivateKey) (solana.Signature, error) {
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}
	return c.SendTransaction(ctx, tx)
}

// SendSerialized декодирует неподписанную транзакцию из внешнего API,
// подписывает и отправляет. Содержимое блоба не проверяется.
func (c *Client) SendSerialized(ctx context.Context, blob []byte, signers ...solana.PrivateKey) (solana.Signature, error) {
	if len(blob) == 0 {
		return solana.Signature{}, ErrEmptyTransaction
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(blob))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("decode transaction: %w", err)
	}
	sig, err := c.SignAndSend(ctx, tx, signers...)
	if err != nil {
		return solana.Signature{}, err
	}
	c.logger.Debug("Transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}

// BuildAndSend собирает транзакцию из инструкций со свежим blockhash.
// Первый подписант платит комиссию.
func (c *Client) BuildAndSend(ctx context.Context, instructions []solana.Instruction, payer solana.PrivateKey, extra ...solana.PrivateKey) (solana.Signature, error) {
	blockhash, err := c.GetRecentBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}
	return c.SignAndSend(ctx, tx, append([]solana.PrivateKey{payer}, extra...)...)
}
