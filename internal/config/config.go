package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/magic3t/server/internal/matchmaking"
	"github.com/magic3t/server/internal/models"
	"github.com/magic3t/server/internal/rating"
)

// ModeConfig is the YAML shape of one matchmaking mode.
type ModeConfig struct {
	TimeLimitSec int `yaml:"time_limit_sec"`
}

// Config is the full server configuration loaded from YAML, with env
// fallbacks handled separately (database, NATS).
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Modes    map[string]ModeConfig `yaml:"modes"`
	Rating   rating.Config         `yaml:"rating"`
	InitialK float64               `yaml:"initial_k"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Modes: map[string]ModeConfig{
			string(models.GameModeCasual): {TimeLimitSec: 240},
			string(models.GameModeRanked): {TimeLimitSec: 120},
		},
		Rating:   rating.DefaultConfig(),
		InitialK: 96,
	}
	cfg.Server.Port = getEnv("PORT", "8080")
	return cfg
}

// Load reads the YAML config at path, falling back to defaults for anything
// unset. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ModeLimits converts the YAML mode table into the matchmaking form.
func (c *Config) ModeLimits() map[models.GameMode]matchmaking.ModeConfig {
	modes := make(map[models.GameMode]matchmaking.ModeConfig, len(c.Modes))
	for name, mode := range c.Modes {
		modes[models.GameMode(name)] = matchmaking.ModeConfig{
			TimeLimit: time.Duration(mode.TimeLimitSec) * time.Second,
		}
	}
	return modes
}

// InitialRating seeds the rating row of a first-time player.
func (c *Config) InitialRating() models.RatingRecord {
	return models.RatingRecord{Score: c.Rating.BaseScore, K: c.InitialK}
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDatabaseConfigFromEnv reads DB_* environment variables (with defaults).
func NewDatabaseConfigFromEnv() DatabaseConfig {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}

	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "magic3t"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
