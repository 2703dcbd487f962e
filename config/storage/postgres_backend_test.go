package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"provsync_kv"`, postgresQuoteIdentifier("provsync_kv"))
	assert.Equal(t, `"we""ird"`, postgresQuoteIdentifier(`we"ird`))
	assert.Equal(t, `""`, postgresQuoteIdentifier("  "))
}

func TestNewPostgresBackendRequiresDSN(t *testing.T) {
	_, err := NewPostgresBackend("")
	assert.ErrorIs(t, err, ErrInvalidDSN)
}

func TestPostgresBackendIntegration(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("PROVSYNC_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("PROVSYNC_TEST_POSTGRES_DSN not set")
	}

	b, err := NewPostgresBackend(dsn)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	key := "test." + uuid.NewString()

	_, found, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, b.Set(ctx, key, "v1"))
	require.NoError(t, b.Set(ctx, key, "v2"))

	value, found, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", value)
}
