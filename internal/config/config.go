// Package config loads atlas settings from defaults, config.yaml, .env files
// and ATLAS_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of environment overrides, e.g. ATLAS_ORDERS_LIMIT.
const EnvPrefix = "ATLAS"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches dirs for config.yaml, defaulting to the working
// directory and ~/.atlas. A .env file next to the config file or in the
// working directory is loaded into the environment first; variables already
// set win.
func NewManager(cfgFile string, dirs ...string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile, dirs); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults, environment and config file.
func (cm *Manager) initViper(cfgFile string, dirs []string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("api_base_url", defaults.APIBaseURL)
	v.SetDefault("orders_limit", defaults.OrdersLimit)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)
	v.SetDefault("upload.max_image_dimension", defaults.Upload.MaxImageDimension)
	v.SetDefault("upload.max_bytes", defaults.Upload.MaxBytes)

	if len(dirs) == 0 {
		dirs = []string{"."}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".atlas"))
		}
	}

	envDirs := dirs
	if cfgFile != "" {
		envDirs = []string{filepath.Dir(cfgFile), "."}
	}
	if err := loadDotEnv(envDirs); err != nil {
		return err
	}

	// Environment variables with ATLAS_ prefix; nested keys use underscores.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_base_url", EnvPrefix+"_API_BASE_URL", "API_BASE_URL"); err != nil {
		return fmt.Errorf("bind api_base_url: %w", err)
	}

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	// Try to read config file (not required unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// loadDotEnv loads the first .env found in dirs.
func loadDotEnv(dirs []string) error {
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		err := godotenv.Load(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading %s: %w", path, err)
		}
	}
	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// File returns the config file in use, or "" when running on defaults.
func (cm *Manager) File() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// Reload re-reads the config file and notifies callbacks. An invalid file
// keeps the previous configuration.
func (cm *Manager) Reload() error {
	if cm.File() != "" {
		if err := cm.v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	cfg, err := cm.load()
	if err != nil {
		return err
	}
	cm.apply(cfg)
	return nil
}

func (cm *Manager) apply(cfg *Config) {
	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

// WatchConfig enables hot-reloading of configuration. It is a no-op when no
// config file was found.
func (cm *Manager) WatchConfig() {
	if cm.File() == "" {
		return
	}
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}
		cm.apply(cfg)
	})
	cm.v.WatchConfig()
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	d := DefaultConfig()
	doc := yaml.MapSlice{
		{Key: "api_base_url", Value: d.APIBaseURL},
		{Key: "orders_limit", Value: d.OrdersLimit},
		{Key: "http_timeout", Value: d.HTTPTimeout.String()},
		{Key: "upload", Value: yaml.MapSlice{
			{Key: "max_image_dimension", Value: d.Upload.MaxImageDimension},
			{Key: "max_bytes", Value: d.Upload.MaxBytes},
		}},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Atlas configuration
# Every key can be overridden with an ATLAS_ environment variable,
# e.g. ATLAS_ORDERS_LIMIT=50. API_BASE_URL is also honored.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
