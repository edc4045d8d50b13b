package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "willdraft.db", cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 50, cfg.RateLimitBurst)
	assert.Equal(t, "/dashboard", cfg.DashboardPath)
	assert.Equal(t, "exports", cfg.Export.Dir)
	assert.Empty(t, cfg.Export.S3Bucket)
	assert.Equal(t, 20*time.Second, cfg.Chatbot.Timeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/wills")
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("S3_BUCKET", "wills")
	t.Setenv("CHATBOT_MODEL", "custom-model")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://u:p@db:5432/wills", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, "wills", cfg.Export.S3Bucket)
	assert.Equal(t, "custom-model", cfg.Chatbot.Model)
}

func TestLoad_YAMLOverlayThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "7000"
environment: staging
export:
  s3_bucket: from-file
chatbot:
  model: file-model
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHATBOT_MODEL", "env-model")

	cfg := Load()

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "from-file", cfg.Export.S3Bucket)
	assert.Equal(t, "env-model", cfg.Chatbot.Model)
	// untouched keys keep their defaults
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
}

func TestLoad_InvalidValuesPanic(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "burst", key: "RATE_LIMIT_BURST", val: "lots"},
		{name: "rps", key: "RATE_LIMIT_RPS", val: "fast"},
		{name: "ttl", key: "TOKEN_TTL", val: "forever"},
		{name: "config file", key: "CONFIG_FILE", val: "/does/not/exist.yaml"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			assert.Panics(t, func() { Load() })
		})
	}
}

func TestValidateConfig(t *testing.T) {
	t.Run("defaults are valid with a weak secret warning", func(t *testing.T) {
		warnings, err := ValidateConfig(defaults())
		require.NoError(t, err)
		assert.Contains(t, warnings, "JWT_SECRET should be at least 32 characters for security")
	})

	t.Run("short encryption key", func(t *testing.T) {
		cfg := defaults()
		cfg.EncryptionKey = "short"
		_, err := ValidateConfig(cfg)
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := defaults()
		cfg.DatabaseDriver = "mongo"
		_, err := ValidateConfig(cfg)
		assert.Error(t, err)
	})

	t.Run("production defaults warn", func(t *testing.T) {
		cfg := defaults()
		cfg.Environment = "production"
		warnings, err := ValidateConfig(cfg)
		require.NoError(t, err)
		assert.Contains(t, warnings, "Change ADMIN_CODE in production environment")
		assert.Contains(t, warnings, "Change ENCRYPTION_KEY in production environment")
	})
}
