// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrKeyMismatch    = errors.New("public key does not match private key")
)

// Wallet представляет именованный кошелёк Solana.
type Wallet struct {
	Name       string
	PublicKey  solana.PublicKey
	PrivateKey solana.PrivateKey
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
func NewWallet(name, privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: failed to decode private key: %w", name, err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("wallet %s: invalid private key length: expected 64 bytes, got %d", name, len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		Name:       name,
		PublicKey:  privateKey.PublicKey(),
		PrivateKey: privateKey,
	}, nil
}

// Generate создаёт новый случайный кошелёк.
func Generate(name string) (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Wallet{Name: name, PublicKey: key.PublicKey(), PrivateKey: key}, nil
}

// Address возвращает base58 адрес кошелька.
func (w *Wallet) Address() string {
	return w.PublicKey.String()
}

// fileEntry – формат записи в файлах кошельков. Старые файлы хранят
// ключ в поле privateKeyBase58.
type fileEntry struct {
	Name             string `json:"name,omitempty"`
	PublicKey        string `json:"publicKey"`
	PrivateKey       string `json:"privateKey,omitempty"`
	PrivateKeyBase58 string `json:"privateKeyBase58,omitempty"`
}

func (w *Wallet) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileEntry{
		Name:       w.Name,
		PublicKey:  w.PublicKey.String(),
		PrivateKey: base58.Encode(w.PrivateKey),
	})
}

func (w *Wallet) UnmarshalJSON(data []byte) error {
	var e fileEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	key := e.PrivateKey
	if key == "" {
		key = e.PrivateKeyBase58
	}
	parsed, err := NewWallet(e.Name, key)
	if err != nil {
		return err
	}
	if e.PublicKey != "" && e.PublicKey != parsed.PublicKey.String() {
		return fmt.Errorf("wallet %s: %w", e.Name, ErrKeyMismatch)
	}
	*w = *parsed
	return nil
}
