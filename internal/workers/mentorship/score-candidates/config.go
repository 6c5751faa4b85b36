// internal/workers/mentorship/score-candidates/config.go
package scorecandidates

import "time"

type Config struct {
	OracleTimeout       time.Duration
	Timeout             time.Duration
	MaxConcurrentScores int
}

func LoadConfig() *Config {
	return &Config{
		OracleTimeout:       8 * time.Second,
		Timeout:             60 * time.Second,
		MaxConcurrentScores: 5,
	}
}
