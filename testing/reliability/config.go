package reliability

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ReliabilityConfig holds configuration for reliability testing.
type ReliabilityConfig struct {
	Level            string        `envconfig:"LEVEL"`                            // "basic" or "stress"
	Duration         time.Duration `envconfig:"DURATION" default:"30s"`           // Test duration for stress tests
	MaxGoroutines    int           `envconfig:"MAX_GOROUTINES" default:"100"`     // Maximum goroutines for concurrent tests
	MaxRoots         int           `envconfig:"MAX_ROOTS" default:"1000"`         // Roots created by storm tests
	FailureThreshold float64       `envconfig:"FAILURE_THRESHOLD" default:"0.05"` // Failure rate threshold (0.0-1.0)
}

// getReliabilityConfig reads TESTSPAN_RELIABILITY_* environment variables.
// Malformed values fall back to the defaults with reliability tests disabled.
func getReliabilityConfig() ReliabilityConfig {
	var config ReliabilityConfig
	if err := envconfig.Process("TESTSPAN_RELIABILITY", &config); err != nil {
		return ReliabilityConfig{
			Duration:         30 * time.Second,
			MaxGoroutines:    100,
			MaxRoots:         1000,
			FailureThreshold: 0.05,
		}
	}
	return config
}
