package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	dir := t.TempDir()

	dv, err := NewDiskv(filepath.Join(dir, "diskv"), 0)
	require.NoError(t, err)

	sq, err := NewSQLite(context.Background(), filepath.Join(dir, "db", "quotes.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Backend{
		DriverMemory: NewMemory(),
		DriverDiskv:  dv,
		DriverSQLite: sq,
	}
}

func TestBackends_GetMissingKey(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(context.Background(), "quotes")

			require.Error(t, err)
			assert.True(t, domain.IsNotFound(err))
		})
	}
}

func TestBackends_SetThenGet(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Set(ctx, "selectedCategory", []byte("Life")))
			require.NoError(t, b.Set(ctx, "quotes", []byte(`[{"text":"a","category":"b"}]`)))
			require.NoError(t, b.Set(ctx, "selectedCategory", []byte("Motivation")))

			got, err := b.Get(ctx, "selectedCategory")
			require.NoError(t, err)
			assert.Equal(t, "Motivation", string(got))

			got, err = b.Get(ctx, "quotes")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"text":"a","category":"b"}]`, string(got))

			assert.NoError(t, b.Check(ctx))
			assert.NotEmpty(t, b.Name())
		})
	}
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestDiskv_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewDiskv(dir, 1024)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "quotes", []byte("[]")))
	require.NoError(t, first.Close())

	second, err := NewDiskv(dir, 1024)
	require.NoError(t, err)

	got, err := second.Get(ctx, "quotes")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quotes.db")

	first, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "quotes", []byte("[]")))
	require.NoError(t, first.Close())

	second, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.Get(ctx, "quotes")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		cfg      config.StorageConfig
		wantName string
		wantErr  bool
	}{
		{name: "memory", cfg: config.StorageConfig{Driver: DriverMemory}, wantName: "storage-memory"},
		{name: "diskv", cfg: config.StorageConfig{Driver: DriverDiskv, Path: filepath.Join(dir, "d")}, wantName: "storage-diskv"},
		{name: "sqlite", cfg: config.StorageConfig{Driver: DriverSQLite, Path: filepath.Join(dir, "s.db")}, wantName: "storage-sqlite"},
		{name: "unknown", cfg: config.StorageConfig{Driver: "bolt", Path: dir}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Open(context.Background(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			assert.Equal(t, tt.wantName, b.Name())
		})
	}
}

func TestDiskv_CheckFailsWhenDirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")

	s, err := NewDiskv(dir, 0)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, s.Check(context.Background()))
}
