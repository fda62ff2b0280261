package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.True(t, cfg.Store.BooksUniqueUserID)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTDuration)
	assert.Empty(t, cfg.Auth.LoginURL)
}

func Test_LoadConfig_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", ":memory:")
	t.Setenv("REQUEST_TIMEOUT", "250ms")
	t.Setenv("BOOKS_UNIQUE_USER_ID", "false")
	t.Setenv("AUTH_LOGIN_URL", "/login")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.False(t, cfg.Store.BooksUniqueUserID)
	assert.Equal(t, "/login", cfg.Auth.LoginURL)

	db := cfg.Store.Database()
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, ":memory:", db.SQLitePath)
}

func Test_LoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
}

func Test_LoadConfig_RejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := LoadConfig("")

	assert.ErrorContains(t, err, "STORE_DRIVER")
}

// chdir stands in for testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
