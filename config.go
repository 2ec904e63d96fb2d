package aebridge

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the tunables of a bridge. Zero values fall back to the
// defaults below when the bridge is constructed.
type Config struct {
	// SendTimeout bounds how long Send waits for the facility to come back
	// with a reply. The event's own timeout attribute governs dispatch on
	// the receiving side; this bounds the sender.
	SendTimeout time.Duration `env:"AEBRIDGE_SEND_TIMEOUT" envDefault:"1m"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{SendTimeout: time.Minute}
}

// ConfigFromEnv reads the configuration from AEBRIDGE_* environment
// variables, applying the struct defaults for anything unset.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("aebridge: parsing environment config: %w", err)
	}
	return cfg, nil
}
