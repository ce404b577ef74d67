// Package config provides configuration loading and validation for the API
// server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Runner names accepted in the configuration.
const (
	RunnerOllama = "ollama"
	RunnerGemini = "gemini"
)

// Config represents the server configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or environment
// variables.
type Config struct {
	// Server
	Port        int    `json:"port,omitempty"`         // HTTP listen port
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for metadata
	// AdminDatabaseURL points at a role that may create and drop the
	// per-dataset databases. Falls back to DatabaseURL when empty.
	AdminDatabaseURL string `json:"admin_database_url,omitempty"`

	// Models
	Runner              string            `json:"runner,omitempty"`               // "ollama" or "gemini"
	GeminiAPIKey        string            `json:"gemini_api_key,omitempty"`       // required for the gemini runner
	BaseModel           string            `json:"base_model,omitempty"`           // base model reference
	ConceptOverlay      string            `json:"concept_overlay,omitempty"`      // overlay for concept extraction
	RelationshipOverlay string            `json:"relationship_overlay,omitempty"` // overlay for relationship generation
	AttributeOverlay    string            `json:"attribute_overlay,omitempty"`    // overlay for attribute generation
	NamingOverlay       string            `json:"naming_overlay,omitempty"`       // overlay for naming suggestions
	ModelParams         map[string]string `json:"model_params,omitempty"`         // runner-specific generation params
	DisableKeepAlive    bool              `json:"disable_keep_alive,omitempty"`   // unload models after each task

	// Jobs
	SweepIntervalMinutes int  `json:"sweep_interval_minutes,omitempty"` // how often finished jobs are swept
	JobMaxAgeHours       int  `json:"job_max_age_hours,omitempty"`      // how long finished jobs are kept
	MergeSingletons      bool `json:"merge_singletons,omitempty"`       // fold isolated tables by name prefix
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables. Called after the
// file load so the environment wins.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("ADMIN_DATABASE_URL"); v != "" {
		c.AdminDatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("MODEL_RUNNER"); v != "" {
		c.Runner = v
	}
	if v := os.Getenv("BASE_MODEL"); v != "" {
		c.BaseModel = v
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required")
	}

	switch c.Runner {
	case RunnerOllama:
	case RunnerGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("config error: 'gemini_api_key' is required for the gemini runner")
		}
	default:
		return fmt.Errorf("config error: unknown runner %q", c.Runner)
	}

	if c.BaseModel == "" {
		return fmt.Errorf("config error: 'base_model' is required")
	}
	if c.SweepIntervalMinutes < 0 {
		return fmt.Errorf("config error: 'sweep_interval_minutes' must be non-negative")
	}
	if c.JobMaxAgeHours < 0 {
		return fmt.Errorf("config error: 'job_max_age_hours' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.AdminDatabaseURL == "" {
		result.AdminDatabaseURL = defaults.AdminDatabaseURL
	}
	if result.Runner == "" {
		result.Runner = defaults.Runner
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.BaseModel == "" {
		result.BaseModel = defaults.BaseModel
	}
	if result.ConceptOverlay == "" {
		result.ConceptOverlay = defaults.ConceptOverlay
	}
	if result.RelationshipOverlay == "" {
		result.RelationshipOverlay = defaults.RelationshipOverlay
	}
	if result.AttributeOverlay == "" {
		result.AttributeOverlay = defaults.AttributeOverlay
	}
	if result.NamingOverlay == "" {
		result.NamingOverlay = defaults.NamingOverlay
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.SweepIntervalMinutes == 0 {
		result.SweepIntervalMinutes = defaults.SweepIntervalMinutes
	}
	if result.JobMaxAgeHours == 0 {
		result.JobMaxAgeHours = defaults.JobMaxAgeHours
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// Defaults returns the built-in default configuration.
func Defaults() Config {
	return Config{
		Port:                 8080,
		Runner:               RunnerOllama,
		SweepIntervalMinutes: 10,
		JobMaxAgeHours:       24,
	}
}

// AdminURL returns the admin connection URL, falling back to the metadata
// database URL.
func (c *Config) AdminURL() string {
	if c.AdminDatabaseURL != "" {
		return c.AdminDatabaseURL
	}
	return c.DatabaseURL
}

// Overlays maps slot names to their configured overlay references.
// Slots with no overlay use the plain base model.
func (c *Config) Overlays() map[string]string {
	return map[string]string{
		"concept":      c.ConceptOverlay,
		"relationship": c.RelationshipOverlay,
		"attribute":    c.AttributeOverlay,
		"naming":       c.NamingOverlay,
	}
}
