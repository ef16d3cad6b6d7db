package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"morakib/config"
	"morakib/core"
	"morakib/iris"
	"morakib/storage"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger. Console output is colored for
// interactive use; JSON output is for log shippers.
func InitLogger(cfg *config.Config) (*zap.Logger, *zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if cfg != nil {
		if err := level.Set(cfg.Logging.Level); err != nil {
			return nil, nil, fmt.Errorf("invalid logging.level %q: %w", cfg.Logging.Level, err)
		}
	}

	var encoder zapcore.Encoder
	if cfg != nil && cfg.Logging.JSON {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	zapCore := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	logger := zap.New(zapCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration.
func InitConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if viper.ConfigFileUsed() == "" {
		fmt.Fprintln(os.Stderr, "No config file found, using defaults and env vars")
	}
	return cfg, nil
}

// EnsureDataDirectories creates the data directories if missing.
func EnsureDataDirectories(cfg *config.Config) error {
	for _, dir := range []string{cfg.DataPaths.DataDir, cfg.DataPaths.ProgressCacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return nil
}

// InitSQLite opens the SQLite database and runs the schema.
func InitSQLite(cfg *config.Config, sugar *zap.SugaredLogger) (*storage.SQLite, error) {
	db, err := storage.NewSQLite(cfg.DataPaths.SQLitePath, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}
	sugar.Infow("SQLite initialized", "path", cfg.DataPaths.SQLitePath)
	return db, nil
}

// InitRedis connects the stats cache when Redis is enabled. A connection
// failure is not fatal: the dashboard falls back to direct queries.
func InitRedis(cfg *config.Config, sugar *zap.SugaredLogger) *core.RedisCache {
	if !cfg.Redis.Enabled {
		sugar.Info("Redis cache disabled by configuration")
		return nil
	}
	cache := core.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, sugar)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		sugar.Warnf("Redis unreachable at %s, continuing without stats cache: %v", cfg.Redis.Addr, err)
		cache.Close()
		return nil
	}
	sugar.Infow("Redis cache connected", "addr", cfg.Redis.Addr)
	return cache
}

// InitIRIS builds the DFIR export client when configured. A nil client puts
// exports in mock mode.
func InitIRIS(cfg *config.Config, sugar *zap.SugaredLogger) *iris.Client {
	if cfg.IRIS.URL == "" {
		sugar.Info("IRIS not configured, exports run in mock mode")
		return nil
	}
	timeout := time.Duration(cfg.IRIS.TimeoutSeconds) * time.Second
	sugar.Infow("IRIS client configured", "url", cfg.IRIS.URL)
	return iris.NewClient(cfg.IRIS.URL, cfg.IRIS.APIKey, timeout, sugar)
}
