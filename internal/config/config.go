package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Email    EmailConfig    `mapstructure:"email"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// EmailConfig holds mail provider settings.
type EmailConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	SenderAddress      string        `mapstructure:"sender_address"`
	AuthorizationToken string        `mapstructure:"authorization_token"`
	SendTimeout        time.Duration `mapstructure:"send_timeout"`
}

// WorkerConfig holds delivery worker settings.
type WorkerConfig struct {
	Count        int             `mapstructure:"count"`
	PollInterval time.Duration   `mapstructure:"poll_interval"`
	SendsPerSec  int             `mapstructure:"sends_per_sec"`
	RetryBackoff []time.Duration `mapstructure:"retry_backoff"`
}

// Load reads configuration from configPath/config.yaml (optional) with
// environment overrides. Variables use the NEWSLETTER_ prefix; for example
// NEWSLETTER_DATABASE_URL overrides database.url. Only database.url and
// email.sender_address have no default.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Keys must exist for AutomaticEnv to surface them through Unmarshal,
	// so the required settings get an empty default and a check below.
	v.SetDefault("database.url", "")
	v.SetDefault("email.sender_address", "")

	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("email.base_url", "https://api.postmarkapp.com")
	v.SetDefault("email.send_timeout", 10*time.Second)

	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.poll_interval", time.Second)
	v.SetDefault("worker.sends_per_sec", 50)
	v.SetDefault("worker.retry_backoff", []string{"5s", "30s", "2m"})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("NEWSLETTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A config file is optional; env vars and defaults may be enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is required (NEWSLETTER_DATABASE_URL)")
	}
	if cfg.Email.SenderAddress == "" {
		return nil, fmt.Errorf("email.sender_address is required (NEWSLETTER_EMAIL_SENDER_ADDRESS)")
	}

	return &cfg, nil
}
