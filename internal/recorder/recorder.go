// internal/recorder/recorder.go
package recorder

import (
	"context"

	"github.com/rovshanmuradov/pumpfleet/internal/monitor"
	"go.uber.org/zap"
)

// Recorder persists price snapshots from the monitor.
type Recorder interface {
	Record(ctx context.Context, s monitor.Snapshot) error
	Close() error
}

// Noop is used when no database is configured.
type Noop struct{}

func (Noop) Record(context.Context, monitor.Snapshot) error { return nil }
func (Noop) Close() error                                   { return nil }

// Open returns a SQLite recorder for path, or Noop when path is empty.
func Open(path string, logger *zap.Logger) (Recorder, error) {
	if path == "" {
		return Noop{}, nil
	}
	return NewSQLiteRecorder(path, logger)
}
