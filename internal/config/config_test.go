package config_test

import (
	"strings"
	"testing"

	"github.com/folio-labs/folioctl/internal/config"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FOLIOCTL_OKAPI_URL", "https://okapi.example.edu")
	t.Setenv("FOLIOCTL_TENANT", "lib")
	t.Setenv("FOLIOCTL_TOKEN", "tok-123")
	t.Setenv("FOLIOCTL_BACKUP_DIR", t.TempDir())
}

func TestLoad_ValidConfig(t *testing.T) {
	setValidEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.OkapiURL != "https://okapi.example.edu" {
		t.Errorf("okapi url = %s", cfg.OkapiURL)
	}

	if cfg.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", cfg.MaxRetries)
	}

	if cfg.Rules.ItemBarcodePrefix != "350" {
		t.Errorf("expected default item barcode prefix 350, got %s", cfg.Rules.ItemBarcodePrefix)
	}

	if cfg.Rules.UserBarcodeWidth != 7 {
		t.Errorf("expected default user barcode width 7, got %d", cfg.Rules.UserBarcodeWidth)
	}
}

func TestLoad_MissingURL(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FOLIOCTL_OKAPI_URL", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for missing FOLIOCTL_OKAPI_URL")
	}
}

func TestLoad_BadURLScheme(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FOLIOCTL_OKAPI_URL", "ftp://okapi.example.edu")

	_, err := config.Load()
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Fatalf("expected scheme error, got %v", err)
	}
}

func TestLoad_MissingTenant(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FOLIOCTL_TENANT", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for missing FOLIOCTL_TENANT")
	}
}

func TestLoad_RuleOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FOLIOCTL_ACCESSION_PREFIX", "uc")
	t.Setenv("FOLIOCTL_USER_BARCODE_WIDTH", "9")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Rules.AccessionPrefix != "uc" {
		t.Errorf("accession prefix = %s", cfg.Rules.AccessionPrefix)
	}

	if cfg.Rules.UserBarcodeWidth != 9 {
		t.Errorf("user barcode width = %d", cfg.Rules.UserBarcodeWidth)
	}
}

func TestLoad_HRIDPrefixOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FOLIOCTL_ITEM_HRID_PREFIX", "itm")
	t.Setenv("FOLIOCTL_HOLDINGS_HRID_PREFIX", "hld")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Rules.ItemHRIDPrefix != "itm" {
		t.Errorf("item hrid prefix = %s", cfg.Rules.ItemHRIDPrefix)
	}

	if cfg.Rules.HoldingsHRIDPrefix != "hld" {
		t.Errorf("holdings hrid prefix = %s", cfg.Rules.HoldingsHRIDPrefix)
	}
}

func TestLoad_BadRetries(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FOLIOCTL_MAX_RETRIES", "100")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for out-of-range FOLIOCTL_MAX_RETRIES")
	}
}

func TestSecretRedaction(t *testing.T) {
	s := config.Secret("super-secret")

	if s.String() != "[REDACTED]" {
		t.Errorf("String() leaked: %s", s.String())
	}

	if s.Value() != "super-secret" {
		t.Errorf("Value() = %s", s.Value())
	}
}
