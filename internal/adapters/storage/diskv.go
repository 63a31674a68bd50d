package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/peterbourgon/diskv/v3"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// DefaultCacheSize bounds the diskv read cache when none is configured.
const DefaultCacheSize = 1 << 20

// Diskv stores each key as a file directly under the base directory.
type Diskv struct {
	d        *diskv.Diskv
	basePath string
}

// NewDiskv creates the base directory if needed and opens a diskv store on it.
func NewDiskv(basePath string, cacheSize uint64) (*Diskv, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}

	return &Diskv{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    flatTransform,
			CacheSizeMax: cacheSize,
		}),
		basePath: basePath,
	}, nil
}

func flatTransform(string) []string { return []string{} }

// Get implements ports.KeyValueStore.
func (s *Diskv) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}

	return v, nil
}

// Set implements ports.KeyValueStore. Writes are synced before returning.
func (s *Diskv) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.d.WriteStream(key, bytes.NewReader(value), true); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *Diskv) Name() string { return "storage-diskv" }

// Check verifies the base directory is still a reachable directory.
func (s *Diskv) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("storage directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("storage path %q is not a directory", s.basePath)
	}

	return nil
}

// Close implements io.Closer. diskv holds no open handles between calls.
func (s *Diskv) Close() error { return nil }
