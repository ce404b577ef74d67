// Package config provides admin API key configuration and verification.
package config

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyConfig holds the bcrypt hash the admin API key is verified
// against. Admin endpoints are disabled when no hash is configured.
type AdminKeyConfig struct {
	Hash string
}

// NewAdminKeyConfig creates the admin key configuration from the
// ADMIN_KEY_HASH environment variable.
func NewAdminKeyConfig() *AdminKeyConfig {
	return &AdminKeyConfig{Hash: os.Getenv("ADMIN_KEY_HASH")}
}

// Enabled reports whether an admin key hash is configured.
func (c *AdminKeyConfig) Enabled() bool {
	return c.Hash != ""
}

// Verify checks a presented key against the configured hash.
func (c *AdminKeyConfig) Verify(key string) error {
	if !c.Enabled() {
		return fmt.Errorf("admin key is not configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(key)); err != nil {
		return fmt.Errorf("admin key mismatch")
	}
	return nil
}

// HashAdminKey hashes a new admin key for storage in ADMIN_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin key: %w", err)
	}
	return string(hash), nil
}
