// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrTimeout         = errors.New("request timeout")
	ErrConnection      = errors.New("connection failed")
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err    error
	Method string
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s]: %v", e.Method, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapRPCError классифицирует ошибку узла и оборачивает её с именем метода.
func wrapRPCError(err error, method string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "could not find account"), strings.Contains(msg, "not found"):
		err = fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	case strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		err = fmt.Errorf("%w: %v", ErrRateLimit, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		err = fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return &Error{Err: err, Method: method}
}

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsRetryableError определяет, стоит ли повторять запрос
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection)
}

// logSendError вытаскивает логи симуляции из ответа узла, если они есть.
func logSendError(logger *zap.Logger, err error) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		logger.Error("SendTransaction error", zap.Error(err))
		return
	}
	fields := []zap.Field{zap.Int("code", rpcErr.Code), zap.String("message", rpcErr.Message)}
	if data, ok := rpcErr.Data.(map[string]interface{}); ok {
		if logs, ok := data["logs"].([]interface{}); ok {
			lines := make([]string, 0, len(logs))
			for _, l := range logs {
				if s, ok := l.(string); ok {
					lines = append(lines, s)
				}
			}
			fields = append(fields, zap.Strings("simulation_logs", lines))
		}
	}
	logger.Error("SendTransaction rejected by node", fields...)
}
