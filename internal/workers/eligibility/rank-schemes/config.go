// internal/workers/eligibility/rank-schemes/config.go
package rankschemes

import "time"

type Config struct {
	Timeout time.Duration
	// Workers bounds the evaluation fan-out; zero leaves it unbounded.
	Workers int
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
