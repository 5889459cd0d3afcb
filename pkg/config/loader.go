// Package config loads service configuration from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables declared with `env` struct
// tags, applying envDefault values for anything unset.
//
//	type Config struct {
//	    RedisAddr string  `env:"REDIS_ADDR" envDefault:"localhost:6379"`
//	    TaxRate   float64 `env:"TAX_RATE" envDefault:"0.18"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
