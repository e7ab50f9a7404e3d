package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/yorutsuke/ledgersync/internal/flagx"
	"github.com/yorutsuke/ledgersync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify timeouts either as strings like "10s"
// or as integer nanoseconds.
type JsonConfig struct {
	LocalDSN      string `json:"local_dsn"`
	RemoteBaseURL string `json:"remote_base_url"`
	APIToken      string `json:"api_token"`
	OwnerID       string `json:"owner_id"`

	FetchTimeout     timex.Duration `json:"fetch_timeout"`
	FullFetchTimeout timex.Duration `json:"full_fetch_timeout"`
	PageLimit        int            `json:"page_limit"`

	LogDir           string `json:"log_dir"`
	LogRetentionDays int    `json:"log_retention_days"`

	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3Bucket       string `json:"s3_bucket"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flag. Zero-valued JSON fields leave the existing value alone.
// Read or unmarshal errors panic; the intended order is
// defaults -> parseJson -> parseFlags.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.LocalDSN != "" {
		cfg.LocalDSN = jc.LocalDSN
	}
	if jc.RemoteBaseURL != "" {
		cfg.RemoteBaseURL = jc.RemoteBaseURL
	}
	if jc.APIToken != "" {
		cfg.APIToken = jc.APIToken
	}
	if jc.OwnerID != "" {
		cfg.OwnerID = jc.OwnerID
	}
	if jc.FetchTimeout.Duration != 0 {
		cfg.FetchTimeout = time.Duration(jc.FetchTimeout.Duration)
	}
	if jc.FullFetchTimeout.Duration != 0 {
		cfg.FullFetchTimeout = time.Duration(jc.FullFetchTimeout.Duration)
	}
	if jc.PageLimit != 0 {
		cfg.PageLimit = jc.PageLimit
	}
	if jc.LogDir != "" {
		cfg.LogDir = jc.LogDir
	}
	if jc.LogRetentionDays != 0 {
		cfg.LogRetentionDays = jc.LogRetentionDays
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3AccessKey != "" {
		cfg.S3AccessKey = jc.S3AccessKey
	}
	if jc.S3SecretKey != "" {
		cfg.S3SecretKey = jc.S3SecretKey
	}
}
