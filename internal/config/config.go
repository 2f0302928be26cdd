package config

import (
	"fmt"
	"time"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds runtime settings for the onboard CLI.
type Config struct {
	// Store selects the session slot backend: sqlite, postgres or memory.
	Store       string `mapstructure:"store"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	// Origin is the slot key; one resumable session is kept per origin.
	Origin        string        `mapstructure:"origin"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	LastWriteWins bool          `mapstructure:"last_write_wins"`

	APIAddr    string        `mapstructure:"api_addr"`
	APITimeout time.Duration `mapstructure:"api_timeout"`

	// S3 settings for profile image upload. Upload is disabled while
	// S3Bucket is empty.
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3PublicURL string `mapstructure:"s3_public_url"`

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	LogLevel     string `mapstructure:"log_level"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Store = StoreSQLite
	c.SQLitePath = "onboarding.db"
	c.Origin = common.DefaultOrigin
	c.SessionTTL = common.DefaultSessionTTL
	c.APIAddr = "127.0.0.1:50051"
	c.APITimeout = 15 * time.Second
	c.S3Region = "us-east-1"
	c.LogLevel = "info"
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: sqlite_path must be set for the sqlite store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: postgres_dsn must be set for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.Origin == "" {
		return fmt.Errorf("config: origin must be set")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session_ttl must be positive")
	}
	if c.APIAddr == "" {
		return fmt.Errorf("config: api_addr must be set")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("config: api_timeout must be positive")
	}
	return nil
}
