// internal/workers/mentorship/rank-mentors/config.go
package rankmentors

import "time"

type Config struct {
	// MaxResults caps the ranked list returned to the mentee.
	MaxResults int

	// Timeout is the overall budget for handling one job.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxResults: 10,
		Timeout:    30 * time.Second,
	}
}
