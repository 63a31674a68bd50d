// Package storage provides the key-value backends the quote store persists to.
//
// Three drivers implement ports.KeyValueStore:
//   - diskv: one file per key under a directory, with an in-memory read cache
//   - sqlite: a single kv table in a SQLite database file
//   - memory: a process-local map, also used for session state
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/mitchellh/go-homedir"

	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Driver names accepted by Open.
const (
	DriverDiskv  = "diskv"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Backend is a KeyValueStore that can report its health and release resources.
type Backend interface {
	ports.KeyValueStore
	ports.HealthChecker
	io.Closer
}

// Open creates the durable backend selected by cfg.Driver.
// Paths beginning with "~" are expanded to the user's home directory.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	if cfg.Driver == DriverMemory {
		return NewMemory(), nil
	}

	path, err := homedir.Expand(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding storage path %q: %w", cfg.Path, err)
	}

	switch cfg.Driver {
	case DriverDiskv:
		return NewDiskv(path, cfg.CacheSize)
	case DriverSQLite:
		return NewSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
