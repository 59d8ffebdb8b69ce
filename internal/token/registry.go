// internal/token/registry.go
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfleet/internal/utils/fileutil"
	"go.uber.org/zap"
)

var ErrNoTokens = errors.New("no tokens registered")

// Record is one created token in token_list.json.
type Record struct {
	Mint        string    `json:"mint"`
	CreatedAt   time.Time `json:"createdAt"`
	TxSignature string    `json:"txSignature"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Description string    `json:"description"`
}

// Registry is the ordered list of created tokens; the last one is the
// token every trade command works on.
type Registry struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewRegistry(path string, logger *zap.Logger) *Registry {
	return &Registry{path: path, logger: logger.Named("token-registry")}
}

// List returns every record. A missing file is an empty list.
func (r *Registry) List() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *Registry) read() ([]Record, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token list: %w", err)
	}
	var records []Record
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse token list %s: %w", r.path, err)
	}
	return records, nil
}

// Current returns the most recently created token.
func (r *Registry) Current() (Record, error) {
	records, err := r.List()
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%w in %s", ErrNoTokens, r.path)
	}
	return records[len(records)-1], nil
}

// CurrentMint is Current parsed as a public key.
func (r *Registry) CurrentMint() (solana.PublicKey, error) {
	rec, err := r.Current()
	if err != nil {
		return solana.PublicKey{}, err
	}
	mint, err := solana.PublicKeyFromBase58(rec.Mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint %q in token list: %w", rec.Mint, err)
	}
	return mint, nil
}

func (r *Registry) Append(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token list: %w", err)
	}
	if err := fileutil.WriteFileAtomic(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write token list: %w", err)
	}
	r.logger.Info("Token registered", zap.String("mint", rec.Mint), zap.Int("total", len(records)))
	return nil
}
