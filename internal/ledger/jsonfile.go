// internal/ledger/jsonfile.go
package ledger

import (
	"context"
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

// JSONFileStore keeps the ledger as a single pretty-printed JSON array.
// Every append rereads and rewrites the whole file.
type JSONFileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewJSONFileStore(path string, logger *zap.Logger) *JSONFileStore {
	return &JSONFileStore{
		path:   path,
		logger: logger.Named("ledger"),
	}
}

// List never fails on a missing or malformed file; both read as an empty ledger.
func (s *JSONFileStore) List(_ context.Context, mint string) ([]PurchaseRecord, error) {
	records, _ := s.read()
	return filterByMint(records, mint), nil
}

func (s *JSONFileStore) Append(_ context.Context, rec PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, corrupt := s.read()
	if corrupt {
		// keep the unreadable content around instead of silently overwriting it
		backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
		if err := os.Rename(s.path, backup); err != nil {
			return fmt.Errorf("backup corrupt ledger: %w", err)
		}
		s.logger.Warn("Corrupt ledger moved aside", zap.String("backup", backup))
	}

	records = append(records, rec)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return err
	}

	s.logger.Debug("Purchase recorded",
		zap.String("mint", rec.TokenMint),
		zap.String("wallet", rec.WalletAddress),
		zap.Float64("spent", rec.SpentAmount),
		zap.Float64("unit_price", rec.UnitPrice),
		zap.Int("records", len(records)))
	return nil
}

// read returns the decoded records and whether the file exists but is unreadable.
func (s *JSONFileStore) read() ([]PurchaseRecord, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Ledger read failed, using empty ledger", zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	var records []PurchaseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Ledger is not a JSON array, using empty ledger",
			zap.String("path", s.path), zap.Error(err))
		return nil, true
	}
	return records, false
}

var _ Store = (*JSONFileStore)(nil)
