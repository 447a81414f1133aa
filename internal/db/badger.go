package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

type zapAdapter struct {
	*zap.Logger
}

func (z zapAdapter) Errorf(f string, v ...interface{}) {
	z.Sugar().Errorf(f, v...)
}

func (z zapAdapter) Warningf(f string, v ...interface{}) {
	z.Sugar().Warnf(f, v...)
}

func (z zapAdapter) Infof(f string, v ...interface{}) {
	z.Sugar().Infof(f, v...)
}

func (z zapAdapter) Debugf(f string, v ...interface{}) {
	// Badger debug output is compaction chatter
}

// OpenBadger opens the receipt cache. An empty path opens an in-memory store,
// which is what workers without a local disk use.
func OpenBadger(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for BadgerDB: %w", err)
		}
		// Cached receipts can always be refetched, so writes need not be synced.
		opts = badger.DefaultOptions(path).WithSyncWrites(false)
	}
	opts.Logger = zapAdapter{zap.L()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return db, nil
}
