// internal/workers/mentorship/find-candidates/config.go
package findcandidates

import "time"

type Config struct {
	CacheTTL      time.Duration
	QueryTimeout  time.Duration
	Timeout       time.Duration
	MaxCandidates int
	SearchIndex   string
}

func LoadConfig() *Config {
	return &Config{
		CacheTTL:      10 * time.Minute,
		QueryTimeout:  10 * time.Second,
		Timeout:       30 * time.Second,
		MaxCandidates: 200,
		SearchIndex:   "mentor-profiles",
	}
}
