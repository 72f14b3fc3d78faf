package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"partner-portal/internal/MinIO"
	"partner-portal/pkg/database/postgres"
	"partner-portal/pkg/database/redis"
)

type PortalConfig struct {
	HTTPPort   string        `env:"HTTP_PORT" env-default:"8080"`
	JWTSecret  string        `env:"JWT_TOKEN"`
	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"12h"`
	Postgres   postgres.Config
	Redis      redis.Config
	MinIO      MinIO.Config
}

type AdminConfig struct {
	Postgres postgres.Config
}

func LoadPortalConfig() (*PortalConfig, error) {
	var cfg PortalConfig
	if err := readConfig(&cfg); err != nil {
		return nil, errors.New("cannot read portal config")
	}
	return &cfg, nil
}

func LoadAdminConfig() (*AdminConfig, error) {
	var cfg AdminConfig
	if err := readConfig(&cfg); err != nil {
		return nil, errors.New("cannot read admin config")
	}
	return &cfg, nil
}

// readConfig loads from ./.env when present, otherwise from the process
// environment alone.
func readConfig(cfg interface{}) error {
	if _, err := os.Stat(".env"); err == nil {
		return cleanenv.ReadConfig(".env", cfg)
	}
	return cleanenv.ReadEnv(cfg)
}
