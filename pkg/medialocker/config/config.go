// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ServerConfig is the environment-driven configuration for the locker server.
//
// DATABASE_URL selects the repository: empty means in-memory, a
// postgres:// URL selects PostgreSQL. S3_BUCKET selects the object-store
// backend the same way.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret string `env:"JWT_SECRET" env-default:"dev-secret"`

	KeyPrefix string `env:"MEDIA_KEY_PREFIX" env-default:"media"`

	S3Region          string `env:"S3_REGION"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`

	CoverStyle   string `env:"STYLE_COVER" env-default:"cover"`
	PreviewStyle string `env:"STYLE_PREVIEW" env-default:"preview"`
	AlbumStyle   string `env:"STYLE_ALBUM" env-default:"album"`

	CDNDomain string `env:"CDN_DOMAIN"`
	CDNSecret string `env:"CDN_SECRET"`

	LinkReadValidity   time.Duration `env:"LINK_READ_VALIDITY" env-default:"30m"`
	LinkCacheTTL       time.Duration `env:"LINK_CACHE_TTL" env-default:"20m"`
	LinkUploadValidity time.Duration `env:"LINK_UPLOAD_VALIDITY" env-default:"60m"`
}

// Load reads configuration from the process environment.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that tag defaults cannot express.
func (c *ServerConfig) Validate() error {
	if c.LinkCacheTTL >= c.LinkReadValidity {
		return fmt.Errorf("LINK_CACHE_TTL (%v) must be shorter than LINK_READ_VALIDITY (%v)",
			c.LinkCacheTTL, c.LinkReadValidity)
	}
	if c.CDNDomain != "" && c.CDNSecret == "" {
		return fmt.Errorf("CDN_DOMAIN set without CDN_SECRET")
	}
	return nil
}
