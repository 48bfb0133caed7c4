package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names shared by the numbering and locking sections
const (
	BackendDatabase = "database"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// MinJWTSecretLength is the shortest accepted HMAC signing secret
const MinJWTSecretLength = 32

// Config holds all configuration for the application
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Log            LogConfig
	HTTP           HTTPConfig
	Migration      MigrationConfig
	Event          EventConfig
	Numbering      NumberingConfig
	Reconciliation ReconciliationConfig
	Presentation   PresentationConfig
	Telemetry      TelemetryConfig
	Auth           AuthConfig
}

// AppConfig holds application settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds redis connection settings. Redis backs the sequence
// counters and document locks only when the matching backend selects it.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, console
	Output   string // stdout, stderr, or file path
	SQLLevel string // silent, error, warn, info
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  []string
}

// MigrationConfig controls schema migrations
type MigrationConfig struct {
	Path        string
	AutoMigrate bool
}

// EventConfig holds payment event consumer settings
type EventConfig struct {
	ProcessorEnabled  bool
	BatchSize         int
	Workers           int
	PollInterval      time.Duration
	MaxRetries        int // 0 retries forever
	MaxBackoff        time.Duration
	VisibilityTimeout time.Duration
	CleanupEnabled    bool
	CleanupRetention  time.Duration
	CleanupInterval   time.Duration
}

// NumberingConfig controls reference numbering
type NumberingConfig struct {
	Backend       string // database, redis
	SequenceWidth int
	DateLayout    string
}

// ReconciliationConfig controls the payment status engine
type ReconciliationConfig struct {
	LockBackend        string // memory, redis
	LockTTL            time.Duration
	MaxConflictRetries int
}

// PresentationConfig controls derived display state
type PresentationConfig struct {
	GracePeriod     time.Duration
	DefaultLanguage string
}

// AuthConfig holds API bearer token settings
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	LogsEnabled       bool
	MetricInterval    time.Duration

	ProfilingEnabled bool
	ProfilingAddress string
	SpanProfiles     bool
}

// Load reads configuration from an optional .env file, config.toml and
// INV_-prefixed environment variables, in increasing precedence
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/invoicing")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("INV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:    v.GetString("log.level"),
			Format:   v.GetString("log.format"),
			Output:   v.GetString("log.output"),
			SQLLevel: v.GetString("log.sql_level"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Migration: MigrationConfig{
			Path:        v.GetString("migration.path"),
			AutoMigrate: v.GetBool("migration.auto_migrate"),
		},
		Event: EventConfig{
			ProcessorEnabled:  v.GetBool("event.processor_enabled"),
			BatchSize:         v.GetInt("event.batch_size"),
			Workers:           v.GetInt("event.workers"),
			PollInterval:      v.GetDuration("event.poll_interval"),
			MaxRetries:        v.GetInt("event.max_retries"),
			MaxBackoff:        v.GetDuration("event.max_backoff"),
			VisibilityTimeout: v.GetDuration("event.visibility_timeout"),
			CleanupEnabled:    v.GetBool("event.cleanup_enabled"),
			CleanupRetention:  v.GetDuration("event.cleanup_retention"),
			CleanupInterval:   v.GetDuration("event.cleanup_interval"),
		},
		Numbering: NumberingConfig{
			Backend:       v.GetString("numbering.backend"),
			SequenceWidth: v.GetInt("numbering.sequence_width"),
			DateLayout:    v.GetString("numbering.date_layout"),
		},
		Reconciliation: ReconciliationConfig{
			LockBackend:        v.GetString("reconciliation.lock_backend"),
			LockTTL:            v.GetDuration("reconciliation.lock_ttl"),
			MaxConflictRetries: v.GetInt("reconciliation.max_conflict_retries"),
		},
		Presentation: PresentationConfig{
			GracePeriod:     v.GetDuration("presentation.grace_period"),
			DefaultLanguage: v.GetString("presentation.default_language"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			MetricInterval:    v.GetDuration("telemetry.metric_interval"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingAddress:  v.GetString("telemetry.profiling_address"),
			SpanProfiles:      v.GetBool("telemetry.span_profiles"),
		},
		Auth: AuthConfig{
			Enabled:   v.GetBool("auth.enabled"),
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "invoicing"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "invoicing"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.SQLLevel == "" {
		cfg.Log.SQLLevel = "warn"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Migration.Path == "" {
		cfg.Migration.Path = "migrations"
	}

	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.Workers == 0 {
		cfg.Event.Workers = 4
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = time.Second
	}
	if cfg.Event.MaxBackoff == 0 {
		cfg.Event.MaxBackoff = 5 * time.Minute
	}
	if cfg.Event.VisibilityTimeout == 0 {
		cfg.Event.VisibilityTimeout = 5 * time.Minute
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 7 * 24 * time.Hour
	}
	if cfg.Event.CleanupInterval == 0 {
		cfg.Event.CleanupInterval = time.Hour
	}

	if cfg.Numbering.Backend == "" {
		cfg.Numbering.Backend = BackendDatabase
	}
	if cfg.Numbering.SequenceWidth == 0 {
		cfg.Numbering.SequenceWidth = 4
	}

	if cfg.Reconciliation.LockBackend == "" {
		cfg.Reconciliation.LockBackend = BackendMemory
	}
	if cfg.Reconciliation.LockTTL == 0 {
		cfg.Reconciliation.LockTTL = 30 * time.Second
	}
	if cfg.Reconciliation.MaxConflictRetries == 0 {
		cfg.Reconciliation.MaxConflictRetries = 5
	}

	if cfg.Presentation.GracePeriod == 0 {
		cfg.Presentation.GracePeriod = 10 * 24 * time.Hour
	}
	if cfg.Presentation.DefaultLanguage == "" {
		cfg.Presentation.DefaultLanguage = "en"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = cfg.App.Name
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if cfg.Telemetry.ProfilingAddress == "" {
		cfg.Telemetry.ProfilingAddress = "http://localhost:4040"
	}
	if cfg.Telemetry.MetricInterval == 0 {
		cfg.Telemetry.MetricInterval = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Numbering.Backend {
	case BackendDatabase, BackendRedis:
	default:
		return fmt.Errorf("numbering.backend must be %q or %q, got %q", BackendDatabase, BackendRedis, c.Numbering.Backend)
	}
	if c.Numbering.SequenceWidth < 1 || c.Numbering.SequenceWidth > 18 {
		return fmt.Errorf("numbering.sequence_width must be between 1 and 18, got %d", c.Numbering.SequenceWidth)
	}

	switch c.Reconciliation.LockBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("reconciliation.lock_backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Reconciliation.LockBackend)
	}
	if c.Reconciliation.MaxConflictRetries < 0 {
		return fmt.Errorf("reconciliation.max_conflict_retries cannot be negative")
	}

	if c.Auth.Enabled && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters when auth is enabled", MinJWTSecretLength)
	}

	if c.Event.Workers < 1 {
		return fmt.Errorf("event.workers must be positive")
	}
	if c.Event.MaxRetries < 0 {
		return fmt.Errorf("event.max_retries cannot be negative")
	}
	if c.Presentation.GracePeriod < 0 {
		return fmt.Errorf("presentation.grace_period cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// RedisRequired reports whether any component is configured to use redis
func (c *Config) RedisRequired() bool {
	return c.Numbering.Backend == BackendRedis || c.Reconciliation.LockBackend == BackendRedis
}

// IsProduction reports whether the service runs in the production environment
func (a *AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
