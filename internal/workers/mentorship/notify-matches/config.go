// internal/workers/mentorship/notify-matches/config.go
package notifymatches

import "time"

type Config struct {
	// EmailEnabled and SMSEnabled gate the two delivery channels
	// independently.
	EmailEnabled bool
	SMSEnabled   bool

	FromEmail   string
	SMSSenderID string

	// QueryTimeout bounds the contact lookup.
	QueryTimeout time.Duration

	// Timeout is the overall budget for handling one job.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   false,
		FromEmail:    "no-reply@mentormatch.example",
		QueryTimeout: 10 * time.Second,
		Timeout:      30 * time.Second,
	}
}
