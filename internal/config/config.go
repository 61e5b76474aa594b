package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"

	"github.com/kode4food/waypoint/internal/condition"
	"github.com/kode4food/waypoint/internal/store"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

type (
	// Config holds configuration settings for the workflow service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Stores & Archiving
		Store            StoreConfig
		ArchiveBucketURL string

		// Definitions
		GraphsDir string
		ToolsFile string

		// Engine
		StepTimeout              int64
		MaxEdgeTraversals        int
		ConditionPolicy          string
		DefaultConditionLanguage string
		ExpressionCacheSize      int
		ShutdownTimeout          time.Duration
	}

	// StoreConfig selects and configures the graph and run store
	StoreConfig struct {
		Backend    string
		Redis      RedisConfig
		SQLitePath string
	}

	// RedisConfig holds connection settings for the Redis store
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	DefaultStepTimeout       = 30 * api.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultMaxEdgeTraversals = 100

	DefaultAPIPort  = 8080
	DefaultAPIHost  = "0.0.0.0"
	DefaultLogLevel = "info"
	MaxTCPPort      = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisDB       = 0
	DefaultSQLitePath    = "waypoint.db"
	MaxRedisDB           = 15

	MaxStepTimeout          = 365 * 24 * 60 * api.Minute // 1 year in ms
	MaxEdgeTraversals       = 1_000_000
	MaxExpressionCacheSize  = 10_000_000
	MaxShutdownTimeoutMilli = 60 * api.Minute
)

var (
	ErrInvalidAPIPort           = errors.New("invalid API port")
	ErrInvalidStepTimeout       = errors.New("step timeout must be positive")
	ErrInvalidMaxEdgeTraversals = errors.New(
		"max edge traversals must be positive",
	)
	ErrInvalidShutdownTimeout = errors.New(
		"shutdown timeout must be positive",
	)
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrMissingSQLite   = errors.New("sqlite store requires a path")
	ErrMissingRedis    = errors.New("redis store requires an address")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, engine and in-memory stores
func NewDefaultConfig() *Config {
	return &Config{
		APIPort:  DefaultAPIPort,
		APIHost:  DefaultAPIHost,
		LogLevel: DefaultLogLevel,
		Store: StoreConfig{
			Backend: string(store.BackendMemory),
			Redis: RedisConfig{
				Addr:   DefaultRedisEndpoint,
				DB:     DefaultRedisDB,
				Prefix: store.DefaultRedisPrefix,
			},
			SQLitePath: DefaultSQLitePath,
		},
		StepTimeout:              DefaultStepTimeout,
		MaxEdgeTraversals:        DefaultMaxEdgeTraversals,
		ConditionPolicy:          string(condition.PolicyLenient),
		DefaultConditionLanguage: condition.DefaultLanguage,
		ExpressionCacheSize:      condition.DefaultCacheSize,
		ShutdownTimeout:          DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	loadEnvString("API_HOST", &c.APIHost)
	loadEnvString("LOG_LEVEL", &c.LogLevel)
	loadEnvString("CONDITION_POLICY", &c.ConditionPolicy)
	loadEnvString("DEFAULT_CONDITION_LANGUAGE", &c.DefaultConditionLanguage)
	loadEnvString("STORE_BACKEND", &c.Store.Backend)
	loadEnvString("REDIS_ADDR", &c.Store.Redis.Addr)
	loadEnvString("REDIS_PASSWORD", &c.Store.Redis.Password)
	loadEnvString("REDIS_PREFIX", &c.Store.Redis.Prefix)
	loadEnvString("SQLITE_PATH", &c.Store.SQLitePath)
	loadEnvString("ARCHIVE_BUCKET_URL", &c.ArchiveBucketURL)
	loadEnvString("GRAPHS_DIR", &c.GraphsDir)
	loadEnvString("TOOLS_FILE", &c.ToolsFile)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_DB", &c.Store.Redis.DB, -1, MaxRedisDB,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"STEP_TIMEOUT", &c.StepTimeout, 0, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_EDGE_TRAVERSALS", &c.MaxEdgeTraversals, 0, MaxEdgeTraversals,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"EXPRESSION_CACHE_SIZE", &c.ExpressionCacheSize, 0,
		MaxExpressionCacheSize,
	); err != nil {
		return err
	}

	var shutdown int64
	if err := loadEnvInt(
		"SHUTDOWN_TIMEOUT", &shutdown, 0, MaxShutdownTimeoutMilli,
	); err != nil {
		return err
	}
	if shutdown > 0 {
		c.ShutdownTimeout = time.Duration(shutdown) * time.Millisecond
	}

	return nil
}

// WithDefaults returns a copy of the config with zero-valued fields filled
// in from NewDefaultConfig
func (c *Config) WithDefaults() *Config {
	res := *c
	if err := mergo.Merge(&res, NewDefaultConfig()); err != nil {
		// both sides are the same struct type
		panic(err)
	}
	return &res
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}

	if c.MaxEdgeTraversals <= 0 {
		return ErrInvalidMaxEdgeTraversals
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, c.LogLevel)
	}

	if _, err := condition.ParsePolicy(c.ConditionPolicy); err != nil {
		return err
	}

	reg := condition.NewRegistry(1, "")
	if _, err := reg.Get(c.DefaultConditionLanguage); err != nil {
		return err
	}

	backend, err := store.ParseBackend(c.Store.Backend)
	if err != nil {
		return err
	}
	switch backend {
	case store.BackendRedis:
		if c.Store.Redis.Addr == "" {
			return ErrMissingRedis
		}
	case store.BackendSQLite:
		if c.Store.SQLitePath == "" {
			return ErrMissingSQLite
		}
	}

	return nil
}

// StepTimeoutDuration returns the per-call tool timeout
func (c *Config) StepTimeoutDuration() time.Duration {
	return time.Duration(c.StepTimeout) * time.Millisecond
}

// Addr returns the host:port the API server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func loadEnvString(key string, dst *string) {
	if s := os.Getenv(key); s != "" {
		*dst = s
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
