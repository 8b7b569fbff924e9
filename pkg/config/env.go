package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv overrides target fields from their `env` tagged variables.
// Unset variables leave the field untouched.
func ParseEnv(target interface{}) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
