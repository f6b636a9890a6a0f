// Package config loads server settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/awap/internal/utils"
)

// Analytics access modes.
const (
	AccessPublic        = "public"
	AccessAuthenticated = "authenticated"
	AccessRBAC          = "rbac"
)

type Config struct {
	Env         string `yaml:"env"`
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`

	MigrationsDir string `yaml:"migrations_dir"`
	StaticDir     string `yaml:"static_dir"`
	DevFrontend   string `yaml:"dev_frontend_url"`

	Auth      AuthConfig      `yaml:"auth"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Cache     CacheConfig     `yaml:"cache"`
	Imports   ImportConfig    `yaml:"imports"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`

	Commit    string `yaml:"-"`
	BuildTime string `yaml:"-"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	TokenTTL    string `yaml:"token_ttl"`
	AllowSignup bool   `yaml:"allow_signup"`
}

type AnalyticsConfig struct {
	// Access is one of public, authenticated or rbac.
	Access string `yaml:"access"`
}

type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

type ImportConfig struct {
	MaxUploadMB int `yaml:"max_upload_mb"`
	BatchSize   int `yaml:"batch_size"`
}

type HTTPConfig struct {
	CORSOrigins    []string `yaml:"cors_origins"`
	RequestTimeout string   `yaml:"request_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Env:  "development",
		Addr: ":8080",
		Auth: AuthConfig{
			TokenTTL:    "24h",
			AllowSignup: true,
		},
		Analytics: AnalyticsConfig{Access: AccessAuthenticated},
		Cache:     CacheConfig{TTL: "5m"},
		Imports:   ImportConfig{MaxUploadMB: 10, BatchSize: 500},
		HTTP: HTTPConfig{
			CORSOrigins:    []string{"*"},
			RequestTimeout: "60s",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads .env (if present), then the YAML file at path (if present), then
// applies environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Env = utils.SafeEnv("AWAP_ENV", c.Env)
	c.Addr = utils.SafeEnv("AWAP_ADDR", c.Addr)
	c.DatabaseURL = utils.SafeEnv("DATABASE_URL", c.DatabaseURL)
	c.MigrationsDir = utils.SafeEnv("AWAP_MIGRATIONS_DIR", c.MigrationsDir)
	c.StaticDir = utils.SafeEnv("AWAP_STATIC_DIR", c.StaticDir)
	c.DevFrontend = utils.SafeEnv("AWAP_DEV_FRONTEND_URL", c.DevFrontend)

	c.Auth.JWTSecret = utils.SafeEnv("AWAP_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = utils.SafeEnv("AWAP_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.AllowSignup = utils.EnvBool("AWAP_ALLOW_SIGNUP", c.Auth.AllowSignup)

	c.Analytics.Access = strings.ToLower(utils.SafeEnv("AWAP_ANALYTICS_ACCESS", c.Analytics.Access))

	c.Cache.RedisURL = utils.SafeEnv("REDIS_URL", c.Cache.RedisURL)
	c.Cache.TTL = utils.SafeEnv("AWAP_CACHE_TTL", c.Cache.TTL)

	c.Imports.MaxUploadMB = utils.EnvInt("AWAP_UPLOAD_MAX_MB", c.Imports.MaxUploadMB)
	c.Imports.BatchSize = utils.EnvInt("AWAP_IMPORT_BATCH_SIZE", c.Imports.BatchSize)

	if origins := utils.EnvList("AWAP_CORS_ORIGINS"); len(origins) > 0 {
		c.HTTP.CORSOrigins = origins
	}

	c.Logging.Level = utils.SafeEnv("AWAP_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = utils.SafeEnv("AWAP_LOG_FORMAT", c.Logging.Format)

	c.Commit = os.Getenv("AWAP_COMMIT")
	c.BuildTime = os.Getenv("AWAP_BUILD_TIME")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	switch c.Analytics.Access {
	case AccessPublic, AccessAuthenticated, AccessRBAC:
	default:
		return fmt.Errorf("invalid analytics access mode %q", c.Analytics.Access)
	}
	if c.Production() && c.Auth.JWTSecret == "" {
		return errors.New("AWAP_JWT_SECRET is required in production")
	}
	if c.Imports.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Imports.MaxUploadMB)
	}
	for name, raw := range map[string]string{"token_ttl": c.Auth.TokenTTL, "cache ttl": c.Cache.TTL, "request_timeout": c.HTTP.RequestTimeout} {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}
	return nil
}

func (c *Config) Production() bool { return c.Env == "production" }

// JWTSecretBytes falls back to a fixed development secret.
func (c *Config) JWTSecretBytes() []byte {
	if c.Auth.JWTSecret == "" {
		return []byte("awap-dev-secret")
	}
	return []byte(c.Auth.JWTSecret)
}

func (c *Config) TokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 24*time.Hour)
}

func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.Cache.TTL, 5*time.Minute)
}

func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.HTTP.RequestTimeout, 60*time.Second)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Imports.MaxUploadMB) << 20
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
