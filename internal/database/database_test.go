package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suar-net/suar-probe/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.DBConfig{Type: config.DBTypeMemory}, quietLogger())
	require.NoError(t, err)
	assert.NoError(t, store.Ping(ctx))
	assert.NoError(t, store.Close())

	path := filepath.Join(t.TempDir(), "store.json")
	store, err = Open(ctx, config.DBConfig{Type: config.DBTypeMemory, DSN: path}, quietLogger())
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "probe.db")

	store, err := Open(ctx, config.DBConfig{Type: config.DBTypeSQLite, DSN: dsn}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.NoError(t, store.Ping(ctx))
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open(context.Background(), config.DBConfig{Type: "mongo"}, quietLogger())
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestConnectPostgres_BadDSN(t *testing.T) {
	_, err := ConnectPostgres(context.Background(), "postgres://%zz")
	assert.Error(t, err)
}
