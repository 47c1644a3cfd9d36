package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIID       string `mapstructure:"chargify_api_id"`
	APIPassword string `mapstructure:"chargify_api_password"`
	APISecret   string `mapstructure:"chargify_api_secret"`
	Format      string `mapstructure:"chargify_format"`

	CallbackAddr      string `mapstructure:"callback_addr"`
	DirectRedirectURL string `mapstructure:"direct_redirect_url"`
	PublishersFile    string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	NonceTTLSeconds        int64         `mapstructure:"nonce_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	NonceTTL               time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

var keys = []string{
	"app_name", "app_env", "log_level",
	"chargify_api_id", "chargify_api_password", "chargify_api_secret", "chargify_format",
	"callback_addr", "direct_redirect_url", "publishers_file",
	"storage_type", "bbolt_path", "nonce_ttl_seconds", "storage_cleanup_interval_seconds",
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "chargify")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("chargify_format", "json")
	v.SetDefault("callback_addr", ":8085")
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/nonces.db")
	v.SetDefault("nonce_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64(time.Hour/time.Second))

	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows; bind the rest so
	// Unmarshal sees them.
	for _, k := range keys {
		_ = v.BindEnv(k, strings.ToUpper(k))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.NonceTTL = time.Duration(cfg.NonceTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.APIID) == "" {
		return fmt.Errorf("chargify_api_id is required")
	}
	if strings.TrimSpace(c.APIPassword) == "" {
		return fmt.Errorf("chargify_api_password is required")
	}
	if strings.TrimSpace(c.APISecret) == "" {
		return fmt.Errorf("chargify_api_secret is required")
	}
	if c.NonceTTLSeconds <= 0 {
		return fmt.Errorf("invalid nonce_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	return nil
}

// ClientSettings returns the mapping the API client is built from.
func (c *Config) ClientSettings() map[string]string {
	return map[string]string{
		"api_id":       c.APIID,
		"api_password": c.APIPassword,
		"api_secret":   c.APISecret,
	}
}

// Redacted returns a loggable view of the configuration without credentials.
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"app_name":                 c.AppName,
		"app_env":                  c.Env,
		"log_level":                c.LogLevel,
		"api_id":                   c.APIID,
		"format":                   c.Format,
		"callback_addr":            c.CallbackAddr,
		"direct_redirect_url":      c.DirectRedirectURL,
		"publishers_file":          c.PublishersFile,
		"storage_type":             c.StorageType,
		"bbolt_path":               c.BBoltPath,
		"nonce_ttl_seconds":        c.NonceTTLSeconds,
		"cleanup_interval_seconds": c.StorageCleanupSeconds,
	}
}
