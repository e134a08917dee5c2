package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/videolens/server/internal/domain/checkout"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/domain/usage"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Checkout   CheckoutConfig   `mapstructure:"checkout"`
	Triggers   usage.Triggers   `mapstructure:"triggers"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode,
	)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HTTPClientConfig holds the outbound HTTP client pool settings.
type HTTPClientConfig struct {
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
}

// RateLimitConfig holds rate limiting configuration for checkout routes.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	CheckoutLimit  int           `mapstructure:"checkout_limit"`
	CheckoutWindow time.Duration `mapstructure:"checkout_window"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowOrigins     []string      `mapstructure:"allow_origins"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// CacheConfig holds Redis cache lifetimes.
type CacheConfig struct {
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds prometheus configuration.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// AuthConfig holds access token configuration.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	Leeway    time.Duration `mapstructure:"leeway"`
}

// StripeConfig holds Stripe payment configuration.
type StripeConfig struct {
	SecretKey         string `mapstructure:"secret_key"`
	WebhookSecret     string `mapstructure:"webhook_secret"`
	SuccessURL        string `mapstructure:"success_url"`
	CancelURL         string `mapstructure:"cancel_url"`
	MaxNetworkRetries int64  `mapstructure:"max_network_retries"`
	// PriceIDs maps plan identifiers to Stripe recurring price ids.
	PriceIDs map[string]string `mapstructure:"price_ids"`
}

// CheckoutConfig holds the reconciliation policy.
type CheckoutConfig struct {
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RedirectDelay time.Duration `mapstructure:"redirect_delay"`
	// SessionTTL is how long an untouched reconciliation is kept before the sweeper closes it.
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

// Reconciler returns the per-reconciler retry policy.
func (c CheckoutConfig) Reconciler() checkout.Config {
	return checkout.Config{
		RetryInterval: c.RetryInterval,
		MaxAttempts:   c.MaxAttempts,
		RedirectDelay: c.RedirectDelay,
	}
}

// CatalogConfig points at an optional YAML plan catalog.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/videolens")

	return load(v)
}

// LoadFile loads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("VIDEOLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets from environment
	if secret := os.Getenv("VIDEOLENS_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("VIDEOLENS_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("VIDEOLENS_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if secretKey := os.Getenv("VIDEOLENS_STRIPE_SECRET_KEY"); secretKey != "" {
		cfg.Stripe.SecretKey = secretKey
	}
	if webhookSecret := os.Getenv("VIDEOLENS_STRIPE_WEBHOOK_SECRET"); webhookSecret != "" {
		cfg.Stripe.WebhookSecret = webhookSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if err := c.Triggers.Validate(); err != nil {
		return fmt.Errorf("triggers: %w", err)
	}
	if c.Checkout.MaxAttempts < 1 {
		return fmt.Errorf("%w: checkout.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Checkout.RetryInterval <= 0 {
		return fmt.Errorf("%w: checkout.retry_interval must be positive", ErrInvalidConfig)
	}
	if c.Checkout.SessionTTL <= 0 {
		return fmt.Errorf("%w: checkout.session_ttl must be positive", ErrInvalidConfig)
	}
	for label := range c.Stripe.PriceIDs {
		if !plan.ID(label).IsValid() {
			return fmt.Errorf("%w: stripe.price_ids has unknown plan %q", ErrInvalidConfig, label)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "videolens")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 20)
	v.SetDefault("http_client.max_conns_per_host", 50)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 10*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 30*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.checkout_limit", 10)
	v.SetDefault("rate_limit.checkout_window", time.Minute)
	v.SetDefault("rate_limit.idempotency_ttl", 24*time.Hour)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("cors.max_age", 12*time.Hour)

	v.SetDefault("cache.profile_ttl", 5*time.Minute)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.namespace", "videolens")

	v.SetDefault("auth.leeway", 30*time.Second)

	v.SetDefault("stripe.max_network_retries", 1)

	// Checkout reconciliation defaults
	policy := checkout.DefaultConfig()
	v.SetDefault("checkout.retry_interval", policy.RetryInterval)
	v.SetDefault("checkout.max_attempts", policy.MaxAttempts)
	v.SetDefault("checkout.redirect_delay", policy.RedirectDelay)
	v.SetDefault("checkout.session_ttl", 30*time.Minute)
	v.SetDefault("checkout.sweep_schedule", "@every 1m")

	// Conversion trigger defaults
	triggers := usage.DefaultTriggers()
	v.SetDefault("triggers.free_analysis_warning", triggers.FreeAnalysisWarning)
	v.SetDefault("triggers.free_analysis_block", triggers.FreeAnalysisBlock)
	v.SetDefault("triggers.low_credit_warning_pct", triggers.LowCreditWarningPct)
	v.SetDefault("triggers.low_credit_critical_pct", triggers.LowCreditCriticalPct)
	v.SetDefault("triggers.trial_days", triggers.TrialDays)
	v.SetDefault("triggers.trial_plan", string(triggers.TrialPlan))
}
