package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"store":           "store",
	"sqlite-path":     "sqlite_path",
	"postgres-dsn":    "postgres_dsn",
	"origin":          "origin",
	"session-ttl":     "session_ttl",
	"last-write-wins": "last_write_wins",
	"api-addr":        "api_addr",
	"api-timeout":     "api_timeout",
	"s3-bucket":       "s3_bucket",
	"otlp-endpoint":   "otlp_endpoint",
	"log-level":       "log_level",
}

// BindFlags registers the persistent configuration flags on cmd and binds
// them to v. Flag defaults are only descriptive: an unset flag never
// overrides the file or the environment.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var d Config
	d.LoadDefaults()

	fs := cmd.PersistentFlags()
	fs.String("store", d.Store, "session store backend (sqlite, postgres, memory)")
	fs.String("sqlite-path", d.SQLitePath, "path of the SQLite session database")
	fs.String("postgres-dsn", "", "Postgres DSN for the server-side session store")
	fs.String("origin", d.Origin, "origin key of the stored session")
	fs.Duration("session-ttl", d.SessionTTL, "how long a stored session stays resumable")
	fs.Bool("last-write-wins", false, "overwrite the stored session even if another window changed it")
	fs.String("api-addr", d.APIAddr, "address of the account API")
	fs.Duration("api-timeout", d.APITimeout, "timeout of each account API call")
	fs.String("s3-bucket", "", "bucket for profile image uploads")
	fs.String("otlp-endpoint", "", "OTLP/HTTP endpoint for traces")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("config: bind flag %s: %w", name, err)
		}
	}
	return nil
}
