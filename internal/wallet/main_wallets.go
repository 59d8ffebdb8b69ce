// internal/wallet/main_wallets.go
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/rovshanmuradov/pumpfleet/internal/utils/fileutil"
	"go.uber.org/zap"
)

// Имена основных кошельков.
const (
	Dev              = "dev"
	FunderDev        = "funder_dev"
	FunderAdditional = "funder_additional"
)

// MainWallets – реестр основных кошельков (JSON объект имя -> ключи).
type MainWallets struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewMainWallets(path string, logger *zap.Logger) *MainWallets {
	return &MainWallets{path: path, logger: logger.Named("main-wallets")}
}

func (m *MainWallets) load() (map[string]*Wallet, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]*Wallet{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", m.path, err)
	}
	wallets := map[string]*Wallet{}
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.path, err)
	}
	for name, w := range wallets {
		w.Name = name
	}
	return wallets, nil
}

// Get возвращает кошелёк по имени (dev, funder_dev, ...).
func (m *MainWallets) Get(name string) (*Wallet, error) {
	wallets, err := m.load()
	if err != nil {
		return nil, err
	}
	w, ok := wallets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrWalletNotFound, name, m.path)
	}
	return w, nil
}

// CreateDev создаёт новый dev-<millis> кошелёк и переключает на него алиас dev.
func (m *MainWallets) CreateDev(now time.Time) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallets, err := m.load()
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%d", Dev, now.UnixMilli())
	w, err := Generate(name)
	if err != nil {
		return nil, err
	}
	wallets[name] = w
	alias := *w
	alias.Name = Dev
	wallets[Dev] = &alias

	data, err := json.MarshalIndent(wallets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode main wallets: %w", err)
	}
	if err := fileutil.WriteFileAtomic(m.path, data, 0o600); err != nil {
		return nil, err
	}
	m.logger.Info("Dev wallet created",
		zap.String("name", name),
		zap.String("address", w.Address()))
	return w, nil
}
