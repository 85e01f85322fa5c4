package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/atlasextract/atlas/internal/preflight"
)

// Config holds atlas configuration.
// Stored at: ~/.atlas/config.yaml (or ./config.yaml)
type Config struct {
	// APIBaseURL is the backend the client talks to. API_BASE_URL is honored too.
	APIBaseURL  string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	OrdersLimit int           `mapstructure:"orders_limit" yaml:"orders_limit"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	Upload      UploadConfig  `mapstructure:"upload" yaml:"upload"`
}

// UploadConfig bounds what preflight lets through.
type UploadConfig struct {
	MaxImageDimension int   `mapstructure:"max_image_dimension" yaml:"max_image_dimension"` // longest side in pixels, negative disables
	MaxBytes          int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:  "http://localhost:5000",
		OrdersLimit: 25,
		HTTPTimeout: 5 * time.Minute,
		Upload: UploadConfig{
			MaxImageDimension: preflight.DefaultMaxImageDimension,
			MaxBytes:          preflight.DefaultMaxBytes,
		},
	}
}

// Validate reports the first setting the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_base_url %q is not an absolute URL", c.APIBaseURL)
	}
	if c.OrdersLimit <= 0 {
		return fmt.Errorf("orders_limit must be positive, got %d", c.OrdersLimit)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	return nil
}

// PreflightOptions converts the upload settings for preflight.New.
func (c *Config) PreflightOptions(logger *slog.Logger) preflight.Options {
	return preflight.Options{
		MaxImageDimension: c.Upload.MaxImageDimension,
		MaxBytes:          c.Upload.MaxBytes,
		Logger:            logger,
	}
}
