// Package config resolves CLI settings from flags, FEEDLOG_* environment
// variables and defaults, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/feedlog/internal/errs"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds global settings shared by all commands.
type Config struct {
	Backend       string
	Dir           string // config dir; default location of file and sqlite data
	SQLitePath    string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Key           string
	Passphrase    string
	LogLevel      string
	MetricsFile   string
	Strict        bool
	Timeout       time.Duration
}

// DefaultDir returns $XDG_CONFIG_HOME/feedlog or ~/.config/feedlog.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "feedlog")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "feedlog")
}

// Parse registers global flags on fs, parses args and validates the result.
// Remaining arguments are available through fs.Args.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var c Config
	var envErr error
	envInt := func(name string, def int) int {
		v, ok := os.LookupEnv(name)
		if !ok {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			envErr = errors.Join(envErr, fmt.Errorf("%s: %w", name, err))
			return def
		}
		return n
	}
	envBool := func(name string, def bool) bool {
		v, ok := os.LookupEnv(name)
		if !ok {
			return def
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			envErr = errors.Join(envErr, fmt.Errorf("%s: %w", name, err))
			return def
		}
		return b
	}
	envDur := func(name string, def time.Duration) time.Duration {
		v, ok := os.LookupEnv(name)
		if !ok {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			envErr = errors.Join(envErr, fmt.Errorf("%s: %w", name, err))
			return def
		}
		return d
	}

	fs.StringVar(&c.Backend, "backend", env("FEEDLOG_BACKEND", BackendFile), "storage backend: file|sqlite|postgres|redis|memory")
	fs.StringVar(&c.Dir, "dir", env("FEEDLOG_DIR", DefaultDir()), "data directory")
	fs.StringVar(&c.SQLitePath, "sqlite", env("FEEDLOG_SQLITE", ""), "SQLite database file (default <dir>/feedlog.db)")
	fs.StringVar(&c.DSN, "dsn", env("FEEDLOG_DSN", ""), "PostgreSQL DSN")
	fs.StringVar(&c.RedisAddr, "redis-addr", env("FEEDLOG_REDIS_ADDR", "localhost:6379"), "Redis address")
	fs.StringVar(&c.RedisPassword, "redis-password", env("FEEDLOG_REDIS_PASSWORD", ""), "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", envInt("FEEDLOG_REDIS_DB", 0), "Redis database number")
	fs.StringVar(&c.Key, "key", env("FEEDLOG_KEY", "babyFeedingApp"), "storage key of the snapshot")
	fs.StringVar(&c.Passphrase, "passphrase", env("FEEDLOG_PASSPHRASE", ""), "encrypt the snapshot with this passphrase")
	fs.StringVar(&c.LogLevel, "log-level", env("FEEDLOG_LOG_LEVEL", "warn"), "log level: debug|info|warn|error")
	fs.StringVar(&c.MetricsFile, "metrics-file", env("FEEDLOG_METRICS_FILE", ""), "write Prometheus metrics to this textfile")
	fs.BoolVar(&c.Strict, "strict", envBool("FEEDLOG_STRICT", true), "reject actions that break data invariants")
	fs.DurationVar(&c.Timeout, "timeout", envDur("FEEDLOG_TIMEOUT", 30*time.Second), "overall command timeout")

	if envErr != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", errs.ErrValidation, envErr)
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.Dir, "feedlog.db")
	}
	return c, c.Validate()
}

// Validate checks backend-specific requirements.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("%w: postgres backend needs -dsn", errs.ErrValidation)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis backend needs -redis-addr", errs.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", errs.ErrValidation, c.Backend)
	}
	if c.Key == "" {
		return fmt.Errorf("%w: empty storage key", errs.ErrValidation)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", errs.ErrValidation)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return nil
}

// Remote reports whether the backend is reached over the network.
func (c Config) Remote() bool {
	return c.Backend == BackendPostgres || c.Backend == BackendRedis
}

// NewLogger builds a JSON zap logger at the configured level writing to w.
func (c Config) NewLogger(w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func env(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}
