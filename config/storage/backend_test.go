package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		dsn      string
		wantType interface{}
		wantErr  error
	}{
		{"file scheme", "file://" + filepath.Join(dir, "ext.json"), &FileBackend{}, nil},
		{"bare path", filepath.Join(dir, "ext.json"), &FileBackend{}, nil},
		{"prefs scheme", "prefs://" + filepath.Join(dir, "Preferences"), &PrefsBackend{}, nil},
		{"memory scheme", "memory://open-test", &MemoryBackend{}, nil},
		{"postgres scheme", "postgres://localhost/provsync?sslmode=disable", &PostgresBackend{}, nil},
		{"postgresql alias", "postgresql://localhost/provsync", &PostgresBackend{}, nil},
		{"keyring scheme", "keyring://provsync", &KeyringBackend{}, nil},
		{"empty", "  ", nil, ErrInvalidDSN},
		{"keyring without service", "keyring://", nil, ErrInvalidDSN},
		{"unknown scheme", "mysql://localhost/db", nil, ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := Open(tt.dsn)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, backend)
		})
	}
}

func TestOpenSharedMemory(t *testing.T) {
	a, err := Open("memory://shared-test")
	require.NoError(t, err)
	b, err := Open("memory://shared-test")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", "v"))

	value, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)
}

func TestRegisterBackendFactory(t *testing.T) {
	custom := NewMemoryBackend("custom")
	RegisterBackendFactory(" Custom ", func(dsn string) (Backend, error) {
		return custom, nil
	})

	backend, err := Open("custom://anything")
	require.NoError(t, err)
	assert.Same(t, custom, backend)

	// nil factories and empty schemes are ignored
	RegisterBackendFactory("", func(string) (Backend, error) { return nil, nil })
	RegisterBackendFactory("ignored", nil)
	_, err = Open("ignored://x")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestMemoryBackendFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend("failing")
	boom := errors.New("boom")

	m.FailSet(boom)
	assert.ErrorIs(t, m.Set(ctx, "k", "v"), boom)
	assert.Equal(t, 0, m.SetCount())

	m.FailSet(nil)
	require.NoError(t, m.Set(ctx, "k", "v"))
	assert.Equal(t, 1, m.SetCount())

	m.FailGet(boom)
	_, _, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)

	m.FailGet(nil)
	m.Delete("k")
	_, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	backends := []Backend{
		NewMemoryBackend("canceled"),
		NewFileBackend(filepath.Join(dir, "ext.json")),
		NewPrefsBackend(filepath.Join(dir, "Preferences")),
	}
	for _, b := range backends {
		t.Run(b.Name(), func(t *testing.T) {
			assert.ErrorIs(t, b.Set(ctx, "k", "v"), context.Canceled)
			_, _, err := b.Get(ctx, "k")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}
