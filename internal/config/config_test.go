package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/config"
)

// chdirTemp runs the test from an empty directory so a developer's local
// .env never leaks into assertions.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadPortalConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := config.LoadPortalConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, uint16(5432), cfg.Postgres.Port)
	assert.Equal(t, "portal", cfg.Postgres.Database)
}

func TestLoadPortalConfig_FromEnvFile(t *testing.T) {
	dir := chdirTemp(t)

	envFile := []byte(
		"HTTP_PORT=9090\n" +
			"JWT_TOKEN=file-secret\n" +
			"SESSION_TTL=30m\n" +
			"POSTGRES_HOST=db.internal\n" +
			"MINIO_BUCKET_NAME=extracts-test\n",
	)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), envFile, 0o600))

	cfg, err := config.LoadPortalConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "extracts-test", cfg.MinIO.BucketName)
}

func TestLoadPortalConfig_FromProcessEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("JWT_TOKEN", "env-secret")

	cfg, err := config.LoadPortalConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}

func TestLoadAdminConfig(t *testing.T) {
	chdirTemp(t)
	t.Setenv("POSTGRES_HOST", "admin-db")

	cfg, err := config.LoadAdminConfig()
	require.NoError(t, err)
	assert.Equal(t, "admin-db", cfg.Postgres.Host)
}
