// internal/workers/mentorship/derive-preferences/config.go
package derivepreferences

import "time"

type Config struct {
	OracleTimeout time.Duration
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		OracleTimeout: 8 * time.Second,
		Timeout:       30 * time.Second,
	}
}
