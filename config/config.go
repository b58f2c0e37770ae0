package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Spreadscan SpreadscanConfig `yaml:"spreadscan"`
	Scan       ScanConfig       `yaml:"scan"`
	Display    DisplayConfig    `yaml:"display"`
	Files      FilesConfig      `yaml:"files"`
	Source     SourceConfig     `yaml:"source"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type SpreadscanConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ScanConfig carries the spread detection parameters and the two-tier scan
// cadence. All values are immutable for the process lifetime.
type ScanConfig struct {
	// OrderbookValue is the USD notional absorbed against each side of the
	// book when computing price impact.
	OrderbookValue   float64       `yaml:"orderbook_value"`
	SpreadAlert      float64       `yaml:"spread_alert"`
	MinVolume24h     float64       `yaml:"min_volume_24h"`
	FullScanWait     time.Duration `yaml:"full_scan_wait"`
	ActiveScanWait   time.Duration `yaml:"active_scan_wait"`
	ActiveScanCycles int           `yaml:"active_scan_cycles"`
	ScanOnce         bool          `yaml:"scan_once"`
	DefaultPrecision int           `yaml:"default_precision"`
}

type DisplayConfig struct {
	ShowScanResults    bool `yaml:"show_scan_results"`
	ShowBelowThreshold bool `yaml:"show_below_threshold"`
	ShowLoadedPairInfo bool `yaml:"show_loaded_pair_info"`
}

type FilesConfig struct {
	PairsFile       string        `yaml:"pairs_file"`
	ProductsFile    string        `yaml:"products_file"`
	SpreadPairsFile string        `yaml:"spread_pairs_file"`
	ProductsMaxAge  time.Duration `yaml:"products_max_age"`
}

type SourceConfig struct {
	Coinbase CoinbaseSourceConfig `yaml:"coinbase"`
}

type CoinbaseSourceConfig struct {
	BaseURL        string               `yaml:"base_url"`
	Timeout        time.Duration        `yaml:"timeout"`
	RateLimitDelay time.Duration        `yaml:"rate_limit_delay"`
	Retry          RetryConfig          `yaml:"retry"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// defaultConfig mirrors the scanner's built-in defaults so a sparse config
// file only needs to override what differs.
func defaultConfig() Config {
	return Config{
		Spreadscan: SpreadscanConfig{
			Name:    "SpreadScan",
			Version: "1.0",
		},
		Scan: ScanConfig{
			OrderbookValue:   50000,
			SpreadAlert:      5,
			MinVolume24h:     0,
			FullScanWait:     300 * time.Second,
			ActiveScanWait:   15 * time.Second,
			ActiveScanCycles: 3,
			DefaultPrecision: 8,
		},
		Files: FilesConfig{
			PairsFile:       "active_pairs_no_usd.txt",
			ProductsFile:    "products.json",
			SpreadPairsFile: "active_spread_pairs.json",
			ProductsMaxAge:  4 * time.Hour,
		},
		Source: SourceConfig{
			Coinbase: CoinbaseSourceConfig{
				BaseURL:        "https://api.exchange.coinbase.com",
				Timeout:        10 * time.Second,
				RateLimitDelay: 500 * time.Millisecond,
				Retry: RetryConfig{
					MaxAttempts: 5,
					Delay:       time.Second,
				},
				ConnectionPool: ConnectionPoolConfig{
					MaxIdleConns:    10,
					MaxConnsPerHost: 10,
					IdleConnTimeout: 90 * time.Second,
				},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Spreadscan.Name == "" {
		return fmt.Errorf("spreadscan.name is required")
	}
	if cfg.Spreadscan.Version == "" {
		return fmt.Errorf("spreadscan.version is required")
	}

	if cfg.Scan.OrderbookValue <= 0 {
		return fmt.Errorf("scan.orderbook_value must be greater than 0")
	}
	if cfg.Scan.SpreadAlert <= 0 {
		return fmt.Errorf("scan.spread_alert must be greater than 0")
	}
	if cfg.Scan.MinVolume24h < 0 {
		return fmt.Errorf("scan.min_volume_24h must not be negative")
	}
	if cfg.Scan.FullScanWait <= 0 {
		return fmt.Errorf("scan.full_scan_wait must be greater than 0")
	}
	if cfg.Scan.ActiveScanWait <= 0 {
		return fmt.Errorf("scan.active_scan_wait must be greater than 0")
	}
	if cfg.Scan.ActiveScanCycles <= 0 {
		return fmt.Errorf("scan.active_scan_cycles must be greater than 0")
	}
	if cfg.Scan.DefaultPrecision < 0 {
		return fmt.Errorf("scan.default_precision must not be negative")
	}

	if cfg.Files.PairsFile == "" {
		return fmt.Errorf("files.pairs_file is required")
	}
	if cfg.Files.ProductsFile == "" {
		return fmt.Errorf("files.products_file is required")
	}
	if cfg.Files.SpreadPairsFile == "" {
		return fmt.Errorf("files.spread_pairs_file is required")
	}
	if cfg.Files.ProductsMaxAge <= 0 {
		return fmt.Errorf("files.products_max_age must be greater than 0")
	}

	cb := cfg.Source.Coinbase
	if cb.BaseURL == "" || (!strings.HasPrefix(cb.BaseURL, "http://") && !strings.HasPrefix(cb.BaseURL, "https://")) {
		return fmt.Errorf("source.coinbase.base_url '%s' is invalid", cb.BaseURL)
	}
	if cb.Timeout <= 0 {
		return fmt.Errorf("source.coinbase.timeout must be greater than 0")
	}
	if cb.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("source.coinbase.retry.max_attempts must be greater than 0")
	}
	if cb.Retry.Delay <= 0 {
		return fmt.Errorf("source.coinbase.retry.delay must be greater than 0")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
