package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	store, err := Open(context.Background(), Config{Backend: BackendMemory, SeedFile: path})
	require.NoError(t, err)
	defer store.Close()

	codes, err := store.FindDistinctGameCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"quiz", "flappy"}, codes)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	cfg := DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	store, err := Open(context.Background(), Config{Backend: BackendRedis, Redis: cfg, SeedFile: path})
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(Pinger)
	assert.True(t, ok)
	top, err := store.FindTopByGame(context.Background(), "quiz", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(2), top[0].UserID)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "cassandra"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(context.Background(), Config{SeedFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
