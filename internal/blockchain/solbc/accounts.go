// internal/blockchain/solbc/accounts.go
package solbc

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// TokenBalance – баланс токен-аккаунта в минимальных единицах.
type TokenBalance struct {
	Raw      uint64
	Decimals uint8
}

// UI переводит сырые единицы в "человеческое" количество токенов.
func (b TokenBalance) UI() float64 {
	return RawToUI(int64(b.Raw), b.Decimals)
}

// RawToUI работает и с отрицательной дельтой баланса.
func RawToUI(raw int64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}

// TokenBalance читает баланс ATA владельца. Отсутствующий аккаунт – нулевой баланс.
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (TokenBalance, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return TokenBalance{}, fmt.Errorf("derive ATA: %w", err)
	}
	result, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		wrapped := wrapRPCError(err, "getTokenAccountBalance")
		if IsAccountNotFoundError(wrapped) {
			return TokenBalance{}, nil
		}
		return TokenBalance{}, wrapped
	}
	if result == nil || result.Value == nil {
		return TokenBalance{}, nil
	}
	raw, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return TokenBalance{}, fmt.Errorf("parse token amount %q: %w", result.Value.Amount, err)
	}
	return TokenBalance{Raw: raw, Decimals: result.Value.Decimals}, nil
}

// CloseTokenAccount закрывает ATA владельца и возвращает rent на его же адрес.
func (c *Client) CloseTokenAccount(ctx context.Context, owner solana.PrivateKey, mint solana.PublicKey) (solana.Signature, error) {
	ownerPub := owner.PublicKey()
	ata, _, err := solana.FindAssociatedTokenAddress(ownerPub, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("derive ATA: %w", err)
	}
	ix := token.NewCloseAccountInstruction(ata, ownerPub, ownerPub, nil).Build()
	sig, err := c.BuildAndSend(ctx, []solana.Instruction{ix}, owner)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("close token account %s: %w", ata, err)
	}
	c.logger.Info("Token account close sent",
		zap.String("account", ata.String()),
		zap.String("signature", sig.String()))
	return sig, nil
}

// Transfer переводит лампорты системной программой.
func (c *Client) Transfer(ctx context.Context, from solana.PrivateKey, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	ix := system.NewTransferInstruction(lamports, from.PublicKey(), to).Build()
	sig, err := c.BuildAndSend(ctx, []solana.Instruction{ix}, from)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("transfer to %s: %w", to, err)
	}
	return sig, nil
}
