package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfigFile(t, `{
		"port": 9090,
		"database_url": "postgres://localhost/ontology",
		"runner": "ollama",
		"base_model": "llama3:8b",
		"concept_overlay": "llama3:8b-concepts"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "llama3:8b-concepts", cfg.ConceptOverlay)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfigFile(t, `{"port": `)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Port:        8080,
		DatabaseURL: "postgres://localhost/ontology",
		Runner:      RunnerOllama,
		BaseModel:   "llama3:8b",
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_UnknownRunner(t *testing.T) {
	cfg := validConfig()
	cfg.Runner = "bedrock"
	assert.Error(t, cfg.Validate())
}

func TestValidate_GeminiRequiresKey(t *testing.T) {
	cfg := validConfig()
	cfg.Runner = RunnerGemini
	assert.Error(t, cfg.Validate())

	cfg.GeminiAPIKey = "key"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BaseModel = ""
	assert.Error(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/x", BaseModel: "llama3:8b"}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, RunnerOllama, merged.Runner)
	assert.Equal(t, 10, merged.SweepIntervalMinutes)
	assert.Equal(t, 24, merged.JobMaxAgeHours)
	assert.Equal(t, "postgres://localhost/x", merged.DatabaseURL, "explicit values win")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("MODEL_RUNNER", "gemini")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg := validConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, RunnerGemini, cfg.Runner)
	assert.Equal(t, "secret", cfg.GeminiAPIKey)

	t.Setenv("PORT", "not-a-number")
	assert.Error(t, cfg.ApplyEnv())
}

func TestAdminURLFallback(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, cfg.DatabaseURL, cfg.AdminURL())

	cfg.AdminDatabaseURL = "postgres://admin/postgres"
	assert.Equal(t, "postgres://admin/postgres", cfg.AdminURL())
}

func TestOverlays(t *testing.T) {
	cfg := validConfig()
	cfg.ConceptOverlay = "llama3:8b-concepts"
	overlays := cfg.Overlays()
	assert.Equal(t, "llama3:8b-concepts", overlays["concept"])
	assert.Contains(t, overlays, "naming")
	assert.Len(t, overlays, 4)
}

func TestNewJWTConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := NewJWTConfig()
	assert.Error(t, err, "a missing secret disables token auth")

	t.Setenv("JWT_SECRET", "test-secret")
	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)

	t.Setenv("JWT_TTL_HOURS", "2")
	cfg, err = NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)

	t.Setenv("JWT_TTL_HOURS", "soon")
	_, err = NewJWTConfig()
	assert.Error(t, err)

	t.Setenv("JWT_TTL_HOURS", "0")
	_, err = NewJWTConfig()
	assert.Error(t, err)
}

func TestAdminKey(t *testing.T) {
	hash, err := HashAdminKey("super-secret")
	require.NoError(t, err)

	keys := &AdminKeyConfig{Hash: hash}
	assert.True(t, keys.Enabled())
	assert.NoError(t, keys.Verify("super-secret"))
	assert.Error(t, keys.Verify("wrong"))

	disabled := &AdminKeyConfig{}
	assert.False(t, disabled.Enabled())
	assert.Error(t, disabled.Verify("anything"))
}
