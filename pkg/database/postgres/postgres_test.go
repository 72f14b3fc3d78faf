package postgres_test

import (
	"testing"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/pkg/database/postgres"
)

func TestConfig_DefaultValues(t *testing.T) {
	var cfg postgres.Config
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, uint16(5432), cfg.Port)
	assert.Equal(t, "portal", cfg.Username)
	assert.Equal(t, "portal", cfg.Database)
}

func TestConfig_CustomValues(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "custom-host")
	t.Setenv("POSTGRES_PORT", "5434")
	t.Setenv("POSTGRES_USER", "custom-user")
	t.Setenv("POSTGRES_PASSWORD", "custom-pass")
	t.Setenv("POSTGRES_DB", "custom-db")

	var cfg postgres.Config
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	assert.Equal(t, "custom-host", cfg.Host)
	assert.Equal(t, uint16(5434), cfg.Port)
	assert.Equal(t, "custom-user", cfg.Username)
	assert.Equal(t, "custom-pass", cfg.Password)
	assert.Equal(t, "custom-db", cfg.Database)
}
