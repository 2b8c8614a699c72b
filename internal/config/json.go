package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fintrail/audita/internal/flagx"
	"github.com/fintrail/audita/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for interval fields, which
// parses both string values such as "1h" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	MetricsAddr           string         `json:"metrics_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	RedisURL              string         `json:"redis_url"`
	MasterPassphrase      string         `json:"master_passphrase"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	TenantID              string         `json:"tenant_id"`
	MaxAccessEvents       int            `json:"max_access_events"`
	MaintenanceInterval   timex.Duration `json:"maintenance_interval"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config command-line flags. When no flag is set, nothing is loaded.
// An unreadable file or invalid JSON panics: a deployment that names a
// config file expects it to be used.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.MetricsAddr = c.MetricsAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisURL = c.RedisURL
	config.MasterPassphrase = c.MasterPassphrase
	config.SecretKey = c.SecretKey
	config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	config.TenantID = c.TenantID
	config.MaxAccessEvents = c.MaxAccessEvents
	config.MaintenanceInterval = time.Duration(c.MaintenanceInterval.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
