// Package config loads runtime configuration for the onboard CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config.
//  3. Environment variables prefixed with ONBOARD_ (ONBOARD_STORE,
//     ONBOARD_SQLITE_PATH, ...).
//  4. Command-line flags bound with BindFlags, which override everything.
//
// # JSON schema
//
// Durations accept Go duration strings:
//
//	{
//	  "store": "sqlite",
//	  "sqlite_path": "onboarding.db",
//	  "session_ttl": "48h",
//	  "api_addr": "127.0.0.1:50051",
//	  "api_timeout": "15s"
//	}
package config
