package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devEncryptionKey = "dev-only-key-change-me-32-bytes!"

type Config struct {
	Port           string
	Environment    string
	FrontendURL    string
	AllowedOrigins []string
	StorageDriver  string
	DatabaseURL    string
	JWTSecret      string
	TokenTTL       time.Duration
	EncryptionKey  string
	LogLevel       string
	AdminSecret    string
	RatesURL       string
	SMTP           SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether outgoing mail is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesDevKey reports whether the built-in development encryption key is active.
func (c *Config) UsesDevKey() bool {
	return c.EncryptionKey == devEncryptionKey
}

// Load reads .env (when present), an optional config.yaml and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("storage_driver", "postgres")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "168h")
	v.SetDefault("data_encryption_key", devEncryptionKey)
	v.SetDefault("log_level", "info")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("rates_url", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:          v.GetString("port"),
		Environment:   strings.ToLower(v.GetString("environment")),
		FrontendURL:   v.GetString("frontend_url"),
		StorageDriver: strings.ToLower(v.GetString("storage_driver")),
		DatabaseURL:   v.GetString("database_url"),
		JWTSecret:     v.GetString("jwt_secret"),
		TokenTTL:      v.GetDuration("token_ttl"),
		EncryptionKey: v.GetString("data_encryption_key"),
		LogLevel:      v.GetString("log_level"),
		AdminSecret:   v.GetString("admin_secret"),
		RatesURL:      v.GetString("rates_url"),
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			Username: v.GetString("smtp_username"),
			Password: v.GetString("smtp_password"),
			From:     v.GetString("smtp_from"),
		},
	}

	cfg.AllowedOrigins = []string{cfg.FrontendURL}
	for _, origin := range strings.Split(v.GetString("allowed_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" && origin != cfg.FrontendURL {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("DATA_ENCRYPTION_KEY must be exactly 32 characters")
	}
	if c.IsProduction() && c.UsesDevKey() {
		return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}
