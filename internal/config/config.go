// Package config loads runtime settings for the ledger client.
package config

import "time"

// Config holds runtime settings for the ledger sync client.
//
// Timeouts: FetchTimeout bounds a single remote request; FullFetchTimeout
// bounds the whole unfiltered fetch used by restore.
type Config struct {
	LocalDSN      string
	RemoteBaseURL string
	APIToken      string
	OwnerID       string

	FetchTimeout     time.Duration
	FullFetchTimeout time.Duration
	PageLimit        int

	LogDir           string
	LogRetentionDays int

	// Receipt image bucket (S3-compatible). Empty bucket disables the
	// asset store.
	S3Region       string
	S3BaseEndpoint string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDSN = "ledger.db"
	c.RemoteBaseURL = "http://127.0.0.1:8080"
	c.FetchTimeout = 10 * time.Second
	c.FullFetchTimeout = 20 * time.Second
	c.PageLimit = 100
	c.LogRetentionDays = 7
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}
