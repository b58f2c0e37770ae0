package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `spreadscan:
  name: "TestScan"
  version: "1.0"
scan:
  orderbook_value: 50000
  spread_alert: 5
  full_scan_wait: 300s
  active_scan_wait: 15s
  active_scan_cycles: 3
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Spreadscan.Name != "TestScan" {
		t.Errorf("unexpected name: %s", cfg.Spreadscan.Name)
	}
	if cfg.Scan.OrderbookValue != 50000 {
		t.Errorf("unexpected orderbook value: %f", cfg.Scan.OrderbookValue)
	}
	// Defaults must fill everything the file omits.
	if cfg.Scan.DefaultPrecision != 8 {
		t.Errorf("unexpected default precision: %d", cfg.Scan.DefaultPrecision)
	}
	if cfg.Files.SpreadPairsFile != "active_spread_pairs.json" {
		t.Errorf("unexpected spread pairs file: %s", cfg.Files.SpreadPairsFile)
	}
	if cfg.Source.Coinbase.Retry.MaxAttempts != 5 {
		t.Errorf("unexpected retry attempts: %d", cfg.Source.Coinbase.Retry.MaxAttempts)
	}
	if cfg.Source.Coinbase.RateLimitDelay != 500*time.Millisecond {
		t.Errorf("unexpected rate limit delay: %v", cfg.Source.Coinbase.RateLimitDelay)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if _, err := LoadConfig("does-not-exist.yml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Scan.SpreadAlert = 0
	if err := validateConfig(&cfg); err == nil {
		t.Error("expected error for zero spread alert")
	}

	cfg = defaultConfig()
	cfg.Source.Coinbase.BaseURL = "ftp://example.com"
	if err := validateConfig(&cfg); err == nil {
		t.Error("expected error for invalid base url")
	}

	cfg = defaultConfig()
	cfg.Storage.S3.Enabled = true
	cfg.Storage.S3.Bucket = "Invalid..Bucket"
	cfg.Storage.S3.Region = "us-east-1"
	cfg.Storage.S3.AccessKeyID = "id"
	cfg.Storage.S3.SecretAccessKey = "secret"
	if err := validateConfig(&cfg); err == nil {
		t.Error("expected error for invalid bucket name")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	if env := AppEnvironment(); env != EnvironmentProduction {
		t.Errorf("alias not resolved: %s", env)
	}
	t.Setenv("APP_ENV", "")
	if env := AppEnvironment(); env != EnvironmentDevelopment {
		t.Errorf("empty APP_ENV should default to development: %s", env)
	}
}
