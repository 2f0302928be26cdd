package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "ONBOARD"

// Load builds a Config from defaults, the optional JSON file at path, the
// environment and whatever flags were bound to v. Later sources take
// precedence over earlier ones.
func Load(v *viper.Viper, path string) (*Config, error) {
	var defaults Config
	defaults.LoadDefaults()
	for key, val := range defaultMap(&defaults) {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultMap(c *Config) map[string]any {
	return map[string]any{
		"store":           c.Store,
		"sqlite_path":     c.SQLitePath,
		"postgres_dsn":    c.PostgresDSN,
		"origin":          c.Origin,
		"session_ttl":     c.SessionTTL,
		"last_write_wins": c.LastWriteWins,
		"api_addr":        c.APIAddr,
		"api_timeout":     c.APITimeout,
		"s3_bucket":       c.S3Bucket,
		"s3_region":       c.S3Region,
		"s3_endpoint":     c.S3Endpoint,
		"s3_access_key":   c.S3AccessKey,
		"s3_secret_key":   c.S3SecretKey,
		"s3_public_url":   c.S3PublicURL,
		"otlp_endpoint":   c.OTLPEndpoint,
		"log_level":       c.LogLevel,
	}
}
