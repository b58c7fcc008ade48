// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Billing    BillingConfig    `yaml:"billing"`
	Usage      UsageConfig      `yaml:"usage"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Export     ExportConfig     `yaml:"export"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	TLS            TLSConfig     `yaml:"tls"`
	DisableDocs    bool          `yaml:"disable_docs,omitempty"` // hides Swagger UI at /swagger/
}

// TLSConfig enables automatic certificates from an ACME directory (Let's Encrypt).
type TLSConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Domains  []string `yaml:"domains"`
	Email    string   `yaml:"email,omitempty"`
	CacheDir string   `yaml:"cache_dir"`
	// HTTPPort serves the ACME HTTP-01 challenge and redirects to HTTPS.
	HTTPPort int  `yaml:"http_port"`
	Staging  bool `yaml:"staging,omitempty"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	Issuer          string        `yaml:"issuer"`
	TokenExpiration time.Duration `yaml:"token_expiration"`
}

// BillingConfig configures the payment processor and the price catalog.
// Use "none", "stripe" or "dummy".
type BillingConfig struct {
	Mode            string        `yaml:"mode"`
	StripeSecretKey string        `yaml:"stripe_secret_key,omitempty"`
	StripePublicKey string        `yaml:"stripe_public_key,omitempty"`
	WebhookSecret   string        `yaml:"webhook_secret,omitempty"`
	SuccessURL      string        `yaml:"success_url"`
	CancelURL       string        `yaml:"cancel_url"`
	Prices          []PriceConfig `yaml:"prices"`
}

// PriceConfig is one catalog entry.
type PriceConfig struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Kind            string `yaml:"kind"` // "one_time" or "subscription"
	Credits         int64  `yaml:"credits,omitempty"`
	Tier            string `yaml:"tier,omitempty"` // "standard" or "pro"
	PeriodicCredits int64  `yaml:"periodic_credits,omitempty"`
}

// UsageConfig configures the paid operation guard.
type UsageConfig struct {
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	ReservationLease time.Duration `yaml:"reservation_lease"`
}

// SummarizerConfig configures the transcription and summarization provider.
// Use "openai", "dummy" or "none".
type SummarizerConfig struct {
	Mode            string        `yaml:"mode"`
	APIKey          string        `yaml:"api_key,omitempty"`
	BaseURL         string        `yaml:"base_url,omitempty"`
	TranscribeModel string        `yaml:"transcribe_model,omitempty"`
	ChatModel       string        `yaml:"chat_model,omitempty"`
	Language        string        `yaml:"language,omitempty"`
	MaxTokens       int           `yaml:"max_tokens,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
}

// ExportConfig configures the document export provider ("google" or "none").
type ExportConfig struct {
	Mode    string `yaml:"mode"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres" or "memory"
	DSN    string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	MEMOMEET_AUTH_JWT_SECRET         - Bearer token secret (required)
//	MEMOMEET_DATABASE_DRIVER         - sqlite, postgres or memory (default: sqlite)
//	MEMOMEET_DATABASE_DSN            - Database path or URL (default: memomeet.db)
//	MEMOMEET_SERVER_HOST             - Server host (default: 0.0.0.0)
//	MEMOMEET_SERVER_PORT             - Server port (default: 8080)
//	MEMOMEET_BILLING_MODE            - none, stripe or dummy (default: none)
//	MEMOMEET_BILLING_STRIPE_KEY      - Stripe secret key
//	MEMOMEET_BILLING_WEBHOOK_SECRET  - Webhook signing secret
//	MEMOMEET_SUMMARIZER_MODE         - openai, dummy or none (default: dummy)
//	MEMOMEET_SUMMARIZER_API_KEY      - OpenAI API key
//	MEMOMEET_LOG_LEVEL               - debug, info, warn, error (default: info)
//	MEMOMEET_LOG_FORMAT              - json or console (default: json)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, errors.New("no configuration found: provide config file or set MEMOMEET_AUTH_JWT_SECRET")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("MEMOMEET_AUTH_JWT_SECRET") != ""
}

// LoadDotEnv loads a .env file into the environment if it exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Catalog builds the price catalog from the configured prices.
func (c *Config) Catalog() (billing.Catalog, error) {
	entries := make([]billing.PriceEntry, 0, len(c.Billing.Prices))
	for _, p := range c.Billing.Prices {
		e := billing.PriceEntry{
			PriceRef: p.ID,
			Name:     p.Name,
			Kind:     billing.PriceKind(p.Kind),
			Credits:  p.Credits,
		}
		if e.Kind == billing.PriceSubscription {
			e.Tier = account.Tier(p.Tier)
			e.PeriodicCredits = p.PeriodicCredits
			e.Unlimited = e.Tier == account.TierPro
		}
		entries = append(entries, e)
	}
	return billing.NewCatalog(entries)
}

// DefaultPrices mirrors billing.DefaultEntries in configuration form.
func DefaultPrices() []PriceConfig {
	defaults := billing.DefaultEntries()
	out := make([]PriceConfig, 0, len(defaults))
	for _, e := range defaults {
		p := PriceConfig{ID: e.PriceRef, Name: e.Name, Kind: string(e.Kind), Credits: e.Credits}
		if e.Kind == billing.PriceSubscription {
			p.Tier = string(e.Tier)
			p.PeriodicCredits = e.PeriodicCredits
		}
		out = append(out, p)
	}
	return out
}

// applyEnvOverrides applies MEMOMEET_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("MEMOMEET_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MEMOMEET_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MEMOMEET_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("MEMOMEET_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("MEMOMEET_SERVER_TLS_DOMAINS"); v != "" {
		cfg.Server.TLS.Enabled = true
		cfg.Server.TLS.Domains = strings.Split(v, ",")
	}
	if v := os.Getenv("MEMOMEET_SERVER_TLS_EMAIL"); v != "" {
		cfg.Server.TLS.Email = v
	}

	// Auth configuration
	if v := os.Getenv("MEMOMEET_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("MEMOMEET_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}

	// Billing configuration
	if v := os.Getenv("MEMOMEET_BILLING_MODE"); v != "" {
		cfg.Billing.Mode = v
	}
	if v := os.Getenv("MEMOMEET_BILLING_STRIPE_KEY"); v != "" {
		cfg.Billing.StripeSecretKey = v
	}
	if v := os.Getenv("MEMOMEET_BILLING_STRIPE_PUBLIC_KEY"); v != "" {
		cfg.Billing.StripePublicKey = v
	}
	if v := os.Getenv("MEMOMEET_BILLING_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.WebhookSecret = v
	}
	if v := os.Getenv("MEMOMEET_BILLING_SUCCESS_URL"); v != "" {
		cfg.Billing.SuccessURL = v
	}
	if v := os.Getenv("MEMOMEET_BILLING_CANCEL_URL"); v != "" {
		cfg.Billing.CancelURL = v
	}

	// Usage configuration
	if v := os.Getenv("MEMOMEET_USAGE_OPERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Usage.OperationTimeout = d
		}
	}

	// Summarizer configuration
	if v := os.Getenv("MEMOMEET_SUMMARIZER_MODE"); v != "" {
		cfg.Summarizer.Mode = v
	}
	if v := os.Getenv("MEMOMEET_SUMMARIZER_API_KEY"); v != "" {
		cfg.Summarizer.APIKey = v
	}

	// Export configuration
	if v := os.Getenv("MEMOMEET_EXPORT_MODE"); v != "" {
		cfg.Export.Mode = v
	}

	// Database configuration
	if v := os.Getenv("MEMOMEET_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("MEMOMEET_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Logging configuration
	if v := os.Getenv("MEMOMEET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MEMOMEET_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("MEMOMEET_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("MEMOMEET_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// uploads are summarized inside the request
		cfg.Server.WriteTimeout = 6 * time.Minute
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 25 << 20
	}
	if cfg.Server.TLS.CacheDir == "" {
		cfg.Server.TLS.CacheDir = "certs"
	}
	if cfg.Server.TLS.HTTPPort == 0 {
		cfg.Server.TLS.HTTPPort = 80
	}

	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "memomeet"
	}
	if cfg.Auth.TokenExpiration == 0 {
		cfg.Auth.TokenExpiration = 24 * time.Hour
	}

	if cfg.Billing.Mode == "" {
		cfg.Billing.Mode = "none"
	}
	if cfg.Billing.SuccessURL == "" {
		cfg.Billing.SuccessURL = "http://localhost:3000/billing/success"
	}
	if cfg.Billing.CancelURL == "" {
		cfg.Billing.CancelURL = "http://localhost:3000/billing/cancel"
	}
	if len(cfg.Billing.Prices) == 0 {
		cfg.Billing.Prices = DefaultPrices()
	}

	if cfg.Usage.OperationTimeout == 0 {
		cfg.Usage.OperationTimeout = 5 * time.Minute
	}
	if cfg.Usage.ReservationLease == 0 {
		cfg.Usage.ReservationLease = 10 * time.Minute
	}

	if cfg.Summarizer.Mode == "" {
		cfg.Summarizer.Mode = "dummy"
	}
	if cfg.Export.Mode == "" {
		cfg.Export.Mode = "none"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "memomeet.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	if cfg.Server.TLS.Enabled && len(cfg.Server.TLS.Domains) == 0 {
		return errors.New("server.tls.domains is required when server.tls.enabled is true")
	}

	switch cfg.Billing.Mode {
	case "none":
	case "stripe":
		if cfg.Billing.StripeSecretKey == "" {
			return errors.New("billing.stripe_secret_key is required when billing.mode is 'stripe'")
		}
		if cfg.Billing.WebhookSecret == "" {
			return errors.New("billing.webhook_secret is required when billing.mode is 'stripe'")
		}
	case "dummy":
		if cfg.Billing.WebhookSecret == "" {
			return errors.New("billing.webhook_secret is required when billing.mode is 'dummy'")
		}
	default:
		return fmt.Errorf("billing.mode must be one of: none, stripe, dummy, got %q", cfg.Billing.Mode)
	}

	for i, p := range cfg.Billing.Prices {
		if p.ID == "" {
			return fmt.Errorf("billing.prices[%d].id is required", i)
		}
	}
	if _, err := cfg.Catalog(); err != nil {
		return fmt.Errorf("billing.prices: %w", err)
	}

	if cfg.Usage.ReservationLease <= cfg.Usage.OperationTimeout {
		return errors.New("usage.reservation_lease must be longer than usage.operation_timeout")
	}

	switch cfg.Summarizer.Mode {
	case "dummy", "none":
	case "openai":
		if cfg.Summarizer.APIKey == "" {
			return errors.New("summarizer.api_key is required when summarizer.mode is 'openai'")
		}
	default:
		return fmt.Errorf("summarizer.mode must be one of: openai, dummy, none, got %q", cfg.Summarizer.Mode)
	}

	if cfg.Export.Mode != "google" && cfg.Export.Mode != "none" {
		return fmt.Errorf("export.mode must be 'google' or 'none', got %q", cfg.Export.Mode)
	}

	switch cfg.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", cfg.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, memory, got %q", cfg.Database.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}

	return nil
}
