package testspan

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "TESTSPAN"

// Config holds the environment driven defaults of the test harness.
type Config struct {
	// Targets maps dotted target prefixes to level names,
	// e.g. TESTSPAN_TARGETS="db:warn,db.pool:debug".
	Targets map[string]string `envconfig:"TARGETS"`
	Level   Level             `envconfig:"LEVEL" default:"info"`
	// Debug turns on the sink's own diagnostic logging.
	Debug bool `envconfig:"DEBUG" default:"false"`
}

// LoadConfig reads configuration from TESTSPAN_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Filter builds the filter described by the configuration.
func (c Config) Filter() (*Filter, error) {
	filter := NewFilter(c.Level)
	for prefix, name := range c.Targets {
		level, err := ParseLevel(name)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", prefix, err)
		}
		filter = filter.WithTarget(prefix, level)
	}
	return filter, nil
}

// FilterFromEnv loads the configuration and returns its filter.
func FilterFromEnv() (*Filter, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Filter()
}
