package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// JWTConfig holds the signing settings for admin tokens. It lives outside
// the JSON config on purpose: the secret comes from the environment only,
// never from a file that might end up in version control.
type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// NewJWTConfig reads JWT settings from the environment. JWT_SECRET is
// required; JWT_TTL_HOURS defaults to 24. An error here means token auth
// stays disabled, which the serve command treats as non-fatal.
func NewJWTConfig() (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret:   os.Getenv("JWT_SECRET"),
		TokenTTL: 24 * time.Hour,
	}
	if v := os.Getenv("JWT_TTL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config error: invalid JWT_TTL_HOURS: %v", err)
		}
		cfg.TokenTTL = time.Duration(hours) * time.Hour
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the JWT configuration has usable values.
func (c *JWTConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("config error: 'JWT_SECRET' is not set")
	}
	if c.TokenTTL < time.Hour {
		return fmt.Errorf("config error: 'JWT_TTL_HOURS' must be at least 1, got %s", c.TokenTTL)
	}
	return nil
}
