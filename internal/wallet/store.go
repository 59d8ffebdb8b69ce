// internal/wallet/store.go
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rovshanmuradov/pumpfleet/internal/utils/fileutil"
	"go.uber.org/zap"
)

// Store – файл набора кошельков (JSON массив). Записи только добавляются.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger.Named("wallet-store")}
}

func (s *Store) Path() string {
	return s.path
}

// Load читает все кошельки. Отсутствующий файл – пустой набор,
// повреждённый файл – ошибка.
func (s *Store) Load() ([]*Wallet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read wallet set %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var wallets []*Wallet
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("parse wallet set %s: %w", s.path, err)
	}
	return wallets, nil
}

// Append дописывает кошельки в конец файла.
func (s *Store) Append(wallets ...*Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(wallets)
}

func (s *Store) appendLocked(wallets []*Wallet) error {
	existing, err := s.Load()
	if err != nil {
		return err
	}
	existing = append(existing, wallets...)
	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet set: %w", err)
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o600)
}

// CreateMultiple генерирует count кошельков prefixN, продолжая нумерацию
// от текущего максимума среди имён с этим префиксом.
func (s *Store) CreateMultiple(prefix string, count int) ([]*Wallet, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid wallet count %d", count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Load()
	if err != nil {
		return nil, err
	}
	next := maxSuffix(existing, prefix)

	created := make([]*Wallet, 0, count)
	for i := 1; i <= count; i++ {
		w, err := Generate(fmt.Sprintf("%s%d", prefix, next+i))
		if err != nil {
			return nil, err
		}
		created = append(created, w)
	}
	if err := s.appendLocked(created); err != nil {
		return nil, err
	}
	s.logger.Info("Wallets created",
		zap.String("prefix", prefix),
		zap.Int("count", count),
		zap.String("first", created[0].Name),
		zap.String("file", s.path))
	return created, nil
}

// Last возвращает последние n кошельков (все, если их меньше n).
func (s *Store) Last(n int) ([]*Wallet, error) {
	all, err := s.Load()
	if err != nil {
		return nil, err
	}
	if n > len(all) {
		s.logger.Warn("Requested more wallets than exist",
			zap.Int("requested", n), zap.Int("available", len(all)))
		return all, nil
	}
	if n <= 0 {
		return nil, nil
	}
	return all[len(all)-n:], nil
}

func maxSuffix(wallets []*Wallet, prefix string) int {
	maxN := 0
	for _, w := range wallets {
		if !strings.HasPrefix(w.Name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(w.Name, prefix))
		if err != nil {
			continue
		}
		if n > maxN {
			maxN = n
		}
	}
	return maxN
}
