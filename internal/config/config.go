// Package config provides environment-driven configuration for folioctl.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// IdentifierRules holds the institution-specific identifier patterns the
// classifier applies before falling back to network probes. Every value is
// configuration: other tenants assign different prefixes.
type IdentifierRules struct {
	ItemBarcodePrefix  string
	ItemBarcodeMinLen  int
	ItemHRIDPrefix     string
	HoldingsHRIDPrefix string
	AccessionPrefix    string
	UserBarcodeWidth   int
}

// Config holds all application configuration values.
type Config struct {
	OkapiURL   string
	Tenant     string
	Token      Secret
	BackupDir  string
	LogLevel   string
	DemoMode   bool
	MaxRetries int
	Rules      IdentifierRules
}

// DefaultRules returns the identifier patterns of the original deployment.
func DefaultRules() IdentifierRules {
	return IdentifierRules{
		ItemBarcodePrefix:  "350",
		ItemBarcodeMinLen:  8,
		ItemHRIDPrefix:     "it",
		HoldingsHRIDPrefix: "ho",
		AccessionPrefix:    "clc",
		UserBarcodeWidth:   7,
	}
}

// Load reads and validates configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads configuration from environment variables with sensible
// defaults, without validating. Callers that overlay further sources
// (flags, a config file) validate once the final values are in place.
func LoadEnv() (*Config, error) {
	cfg := &Config{
		OkapiURL:  envOrDefault("FOLIOCTL_OKAPI_URL", ""),
		Tenant:    envOrDefault("FOLIOCTL_TENANT", ""),
		Token:     Secret(envOrDefault("FOLIOCTL_TOKEN", "")),
		BackupDir: envOrDefault("FOLIOCTL_BACKUP_DIR", defaultBackupDir()),
		LogLevel:  envOrDefault("FOLIOCTL_LOG_LEVEL", "info"),
		DemoMode:  envOrDefault("FOLIOCTL_DEMO_MODE", "false") == "true",
		Rules:     DefaultRules(),
	}

	maxRetries, err := strconv.Atoi(envOrDefault("FOLIOCTL_MAX_RETRIES", "3"))
	if err != nil || maxRetries < 0 || maxRetries > 10 {
		return nil, fmt.Errorf("FOLIOCTL_MAX_RETRIES must be an integer between 0 and 10")
	}
	cfg.MaxRetries = maxRetries

	if v := os.Getenv("FOLIOCTL_ACCESSION_PREFIX"); v != "" {
		cfg.Rules.AccessionPrefix = v
	}
	if v := os.Getenv("FOLIOCTL_ITEM_BARCODE_PREFIX"); v != "" {
		cfg.Rules.ItemBarcodePrefix = v
	}
	if v := os.Getenv("FOLIOCTL_ITEM_HRID_PREFIX"); v != "" {
		cfg.Rules.ItemHRIDPrefix = v
	}
	if v := os.Getenv("FOLIOCTL_HOLDINGS_HRID_PREFIX"); v != "" {
		cfg.Rules.HoldingsHRIDPrefix = v
	}
	if v := os.Getenv("FOLIOCTL_USER_BARCODE_WIDTH"); v != "" {
		width, err := strconv.Atoi(v)
		if err != nil || width < 0 || width > 32 {
			return nil, fmt.Errorf("FOLIOCTL_USER_BARCODE_WIDTH must be an integer between 0 and 32")
		}
		cfg.Rules.UserBarcodeWidth = width
	}

	return cfg, nil
}

// Validate checks that the final configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOkapi(); err != nil {
		return err
	}

	return c.validateBackup()
}

func (c *Config) validateOkapi() error {
	if c.OkapiURL == "" {
		return fmt.Errorf("FOLIOCTL_OKAPI_URL is required")
	}

	u, err := url.ParseRequestURI(c.OkapiURL)
	if err != nil {
		return fmt.Errorf("FOLIOCTL_OKAPI_URL is not a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("FOLIOCTL_OKAPI_URL scheme must be http:// or https://")
	}

	if u.Hostname() == "" {
		return fmt.Errorf("FOLIOCTL_OKAPI_URL must include a host")
	}

	if c.Tenant == "" {
		return fmt.Errorf("FOLIOCTL_TENANT is required")
	}

	return nil
}

func (c *Config) validateBackup() error {
	if c.BackupDir == "" {
		return fmt.Errorf("FOLIOCTL_BACKUP_DIR is required")
	}

	return nil
}

func defaultBackupDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "backups"
	}

	return filepath.Join(home, ".folioctl", "backups")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
