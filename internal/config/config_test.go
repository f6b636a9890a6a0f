package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://test.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, AccessAuthenticated, cfg.Analytics.Access)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "sqlite://test.db", cfg.DatabaseURL)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
addr: ":9090"
database_url: "postgres://file/db"
analytics:
  access: rbac
cache:
  redis_url: "redis://localhost:6379/0"
  ttl: 30s
imports:
  max_upload_mb: 5
http:
  cors_origins: ["https://dash.example.com"]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("AWAP_ANALYTICS_ACCESS", "PUBLIC")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, AccessPublic, cfg.Analytics.Access)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.HTTP.CORSOrigins)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.EqualError(t, cfg.Validate(), "DATABASE_URL is required")

	cfg.DatabaseURL = "sqlite://x.db"
	cfg.Analytics.Access = "everyone"
	assert.Error(t, cfg.Validate())

	cfg.Analytics.Access = AccessRBAC
	cfg.Env = "production"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	cfg.Cache.TTL = "soon"
	assert.Error(t, cfg.Validate())
}

func TestJWTSecretFallback(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []byte("awap-dev-secret"), cfg.JWTSecretBytes())
	cfg.Auth.JWTSecret = "abc"
	assert.Equal(t, []byte("abc"), cfg.JWTSecretBytes())
}
