package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newTestConfig returns a valid Config for testing
func newTestConfig() Config {
	var cfg Config
	cfg.DataPaths.DataDir = "./data"
	cfg.API.Host = "127.0.0.1"
	cfg.API.Port = 8080
	cfg.API.CORSOrigins = []string{"*"}
	cfg.API.RateLimitRPS = 50
	cfg.API.RateLimitBurst = 100
	cfg.Auth.DemoMode = true
	cfg.Auth.DemoEmail = "analyst@morakib.local"
	cfg.Auth.DemoPassword = "demo1234"
	cfg.Auth.TokenTTLMinutes = 480
	cfg.Logging.Level = "info"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := newTestConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := newTestConfig()
	cfg.API.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.API.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidate_JWTSecretRequiredOutsideDemoMode(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.DemoMode = false
	cfg.Auth.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_DemoPasswordRequiredInDemoMode(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.DemoPassword = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_IRISKeyRequiredWithURL(t *testing.T) {
	cfg := newTestConfig()
	cfg.IRIS.URL = "https://iris.example.com"
	cfg.IRIS.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg.IRIS.APIKey = "key"
	assert.NoError(t, cfg.Validate())
}

func TestResolveDataPaths_Defaults(t *testing.T) {
	var cfg Config
	cfg.ResolveDataPaths()

	assert.Equal(t, "./data", cfg.DataPaths.DataDir)
	assert.Equal(t, filepath.Join("./data", "morakib.db"), cfg.DataPaths.SQLitePath)
	assert.Equal(t, filepath.Join("./data", "progress"), cfg.DataPaths.ProgressCacheDir)
}

func TestResolveDataPaths_ExplicitPathsKept(t *testing.T) {
	var cfg Config
	cfg.DataPaths.DataDir = "/var/lib/morakib"
	cfg.DataPaths.SQLitePath = "/var/lib/morakib/soc.db"
	cfg.ResolveDataPaths()

	assert.Equal(t, "/var/lib/morakib/soc.db", cfg.DataPaths.SQLitePath)
	assert.Equal(t, "/var/lib/morakib/progress", cfg.DataPaths.ProgressCacheDir)
}

func TestJWTSecret_DemoFallback(t *testing.T) {
	cfg := newTestConfig()
	fallback := cfg.JWTSecret()
	assert.NotEmpty(t, fallback)

	cfg.Auth.JWTSecret = "configured-secret"
	assert.Equal(t, []byte("configured-secret"), cfg.JWTSecret())
	assert.NotEqual(t, fallback, cfg.JWTSecret())
}

func TestDemoPasswordHash(t *testing.T) {
	cfg := newTestConfig()
	hash, err := cfg.DemoPasswordHash()
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("demo1234")))
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("MORAKIB_API_PORT", "9090")
	t.Setenv("MORAKIB_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 480, cfg.Auth.TokenTTLMinutes)
}
