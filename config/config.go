package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DataPaths holds data directory and file path configuration
type DataPaths struct {
	// DataDir is the base data directory (MORAKIB_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file path (default: ${DataDir}/morakib.db)
	SQLitePath string `mapstructure:"sqlite_path"`
	// ProgressCacheDir is the local SOP progress cache (default: ${DataDir}/progress)
	ProgressCacheDir string `mapstructure:"progress_cache_dir"`
}

// Config holds all configuration for the Morakib service
type Config struct {
	DataPaths DataPaths `mapstructure:"data_paths"`

	API struct {
		Host            string   `mapstructure:"host"`
		Port            int      `mapstructure:"port"`
		CORSOrigins     []string `mapstructure:"cors_origins"`
		RateLimitRPS    float64  `mapstructure:"rate_limit_rps"`
		RateLimitBurst  int      `mapstructure:"rate_limit_burst"`
		ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // seconds
	} `mapstructure:"api"`

	Auth struct {
		// JWTSecret signs session tokens. Required outside demo mode.
		JWTSecret string `mapstructure:"jwt_secret"`
		// TokenTTLMinutes bounds session lifetime
		TokenTTLMinutes int `mapstructure:"token_ttl_minutes"`
		// DemoMode seeds and allows the demo login when true
		DemoMode bool `mapstructure:"demo_mode"`
		// DemoEmail and DemoPassword configure the demo account
		DemoEmail    string `mapstructure:"demo_email"`
		DemoPassword string `mapstructure:"demo_password"`
	} `mapstructure:"auth"`

	Alerts struct {
		// ClearResolvedOnReopen controls whether reopening a closed alert
		// clears its resolution timestamp
		ClearResolvedOnReopen bool `mapstructure:"clear_resolved_on_reopen"`
	} `mapstructure:"alerts"`

	IRIS struct {
		// URL of the IRIS instance; empty disables the integration and
		// switches exports to mock mode
		URL            string `mapstructure:"url"`
		APIKey         string `mapstructure:"api_key"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"iris"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Logging struct {
		Level string `mapstructure:"level"` // debug, info, warn, error
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"logging"`
}

func setDefaults() {
	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "")       // derive from data_dir
	viper.SetDefault("data_paths.progress_cache_dir", "") // derive from data_dir

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.cors_origins", []string{"*"})
	viper.SetDefault("api.rate_limit_rps", 50.0)
	viper.SetDefault("api.rate_limit_burst", 100)
	viper.SetDefault("api.shutdown_timeout", 15)

	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_ttl_minutes", 480)
	viper.SetDefault("auth.demo_mode", true)
	viper.SetDefault("auth.demo_email", "analyst@morakib.local")
	viper.SetDefault("auth.demo_password", "demo1234")

	viper.SetDefault("alerts.clear_resolved_on_reopen", false)

	viper.SetDefault("iris.url", "")
	viper.SetDefault("iris.api_key", "")
	viper.SetDefault("iris.timeout_seconds", 30)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.json", false)
}

// LoadConfig reads configuration from config.yaml, environment variables
// prefixed with MORAKIB_, and defaults, in descending precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("MORAKIB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, defaults and env vars apply
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.ResolveDataPaths()
	return &config, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api.port: %d", c.API.Port)
	}
	if !c.Auth.DemoMode && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when demo mode is disabled")
	}
	if c.Auth.DemoMode && c.Auth.DemoPassword == "" {
		return fmt.Errorf("auth.demo_password must not be empty in demo mode")
	}
	if c.IRIS.URL != "" && c.IRIS.APIKey == "" {
		return fmt.Errorf("iris.api_key is required when iris.url is set")
	}
	return nil
}

// ResolveDataPaths derives unset paths from DataDir
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
		c.DataPaths.DataDir = dataDir
	}
	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "morakib.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}
	if c.DataPaths.ProgressCacheDir == "" {
		c.DataPaths.ProgressCacheDir = filepath.Join(dataDir, "progress")
	}
}

// JWTSecret returns the signing secret, generating a stable demo secret when
// the deployment runs in demo mode without one configured.
func (c *Config) JWTSecret() []byte {
	if c.Auth.JWTSecret != "" {
		return []byte(c.Auth.JWTSecret)
	}
	return []byte("morakib-demo-secret-do-not-use-in-production")
}

// DemoPasswordHash returns the bcrypt hash for the configured demo password.
func (c *Config) DemoPasswordHash() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Auth.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash demo password: %w", err)
	}
	return string(hash), nil
}
