// Package config loads the gateway configuration.
//
// Values come from a YAML file, then GRAYLOGIC_* environment variables,
// then defaults for anything left unset. Validate reports every problem at
// once rather than stopping at the first.
//
// Secrets (API keys, broker password, InfluxDB token) belong in the
// environment. GRAYLOGIC_API_KEYS takes a comma-separated list.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	loc := cfg.Location() // gateway time zone for config/localtime
package config
