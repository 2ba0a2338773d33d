package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration.
type Config struct {
	Environment string         `koanf:"environment"`
	Telegram    TelegramConfig `koanf:"telegram"`
	Handler     HandlerConfig  `koanf:"handler"`
	Database    DatabaseConfig `koanf:"database"`
	Cache       CacheConfig    `koanf:"cache"`
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	Token string `koanf:"token"`
}

// HandlerConfig holds command dispatch configuration.
type HandlerConfig struct {
	// Prefixes are the trigger prefixes tried in order.
	Prefixes []string `koanf:"prefixes"`
	// IgnoreBots drops messages from other bots.
	IgnoreBots bool `koanf:"ignore_bots"`
	// OwnerIDs are user IDs treated as bot owners.
	OwnerIDs []int64 `koanf:"owner_ids"`
	// OwnerChatID names a chat whose administrators are also owners.
	OwnerChatID int64 `koanf:"owner_chat_id"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	User       string `koanf:"user"`
	Password   string `koanf:"password"`
	Database   string `koanf:"database"`
	SSLMode    string `koanf:"sslmode"`
	Migrations string `koanf:"migrations"`
}

// CacheConfig holds message cache configuration.
type CacheConfig struct {
	CleanInterval time.Duration `koanf:"clean_interval"` // e.g., "10m"
	KeepDuration  time.Duration `koanf:"keep_duration"`  // e.g., "48h"
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// Load loads configuration from defaults, the environment's config file
// and HERALD_-prefixed environment variables, in that priority order.
func Load(environment string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	// Config file is optional.
	configFile := fmt.Sprintf("config/%s.yaml", environment)
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		fmt.Printf("Warning: could not load config file %s: %v\n", configFile, err)
	}

	// Environment variables override config file values, with __ as the
	// nesting separator: HERALD_TELEGRAM__TOKEN → telegram.token.
	if err := k.Load(env.ProviderWithValue("HERALD_", "__", func(key string, value string) (string, interface{}) {
		finalKey := strings.TrimPrefix(strings.ToLower(key), "herald_")

		switch k.Get(finalKey).(type) {
		case []interface{}, []string, []int64:
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return finalKey, parts
		}

		return finalKey, value
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Environment = environment

	return &cfg, nil
}

// defaultConfig returns the default configuration values.
func defaultConfig() Config {
	return Config{
		Handler: HandlerConfig{
			Prefixes:   []string{"!"},
			IgnoreBots: true,
		},
		Database: DatabaseConfig{
			Port:       5432,
			SSLMode:    "disable",
			Migrations: "internal/storage/migrations",
		},
		Cache: CacheConfig{
			CleanInterval: 10 * time.Minute,
			KeepDuration:  48 * time.Hour,
		},
	}
}
