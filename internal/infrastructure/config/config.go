package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Stripe    StripeConfig
	Library   LibraryConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
	Document  DocumentConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds settings for validating bearer tokens issued by the
// identity provider
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// CheckoutRateLimit caps checkout attempts per customer per minute
	CheckoutRateLimit int
	DocsEnabled       bool
	DocsAllowedIPs    []string
}

// StripeConfig holds Stripe Checkout settings
type StripeConfig struct {
	SecretKey              string
	WebhookSecret          string
	IsTestMode             bool
	SuccessURL             string
	CancelURL              string
	ConfirmationURL        string // where the customer lands after the success redirect is reconciled
	SessionTTL             time.Duration
	BoletoExpiresAfterDays int64
}

// LibraryConfig holds the business rules of the store and lending desk
type LibraryConfig struct {
	Currency          string
	MaxActiveLoans    int
	LoanPeriodDays    int
	PenaltyRate       string // decimal fraction of the loan value charged per day late
	SaleTTL           time.Duration
	LowStockThreshold int
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled            bool
	ExpirationInterval time.Duration
	ExpirationBatch    int
	LowStockInterval   time.Duration
	JobTimeout         time.Duration
}

// StorageConfig selects where generated documents are kept
type StorageConfig struct {
	Driver       string // s3 or filesystem
	BaseDir      string
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// DocumentConfig holds invoice and receipt rendering settings
type DocumentConfig struct {
	RemoteChromeURL string // empty launches a local headless Chrome
	RenderTimeout   time.Duration
	IssuerName      string
	IssuerTaxID     string
	IssuerAddress   string
	Locale          string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	DBTraceEnabled    bool // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool // Log full SQL statements (dev only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BIB_ prefix (e.g., BIB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BIB")
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
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			CheckoutRateLimit: v.GetInt("http.checkout_rate_limit"),
			DocsEnabled:       v.GetBool("http.docs_enabled"),
			DocsAllowedIPs:    v.GetStringSlice("http.docs_allowed_ips"),
		},
		Stripe: StripeConfig{
			SecretKey:              v.GetString("stripe.secret_key"),
			WebhookSecret:          v.GetString("stripe.webhook_secret"),
			IsTestMode:             v.GetBool("stripe.is_test_mode"),
			SuccessURL:             v.GetString("stripe.success_url"),
			CancelURL:              v.GetString("stripe.cancel_url"),
			ConfirmationURL:        v.GetString("stripe.confirmation_url"),
			SessionTTL:             v.GetDuration("stripe.session_ttl"),
			BoletoExpiresAfterDays: v.GetInt64("stripe.boleto_expires_after_days"),
		},
		Library: LibraryConfig{
			Currency:          v.GetString("library.currency"),
			MaxActiveLoans:    v.GetInt("library.max_active_loans"),
			LoanPeriodDays:    v.GetInt("library.loan_period_days"),
			PenaltyRate:       v.GetString("library.penalty_rate"),
			SaleTTL:           v.GetDuration("library.sale_ttl"),
			LowStockThreshold: v.GetInt("library.low_stock_threshold"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("scheduler.enabled"),
			ExpirationInterval: v.GetDuration("scheduler.expiration_interval"),
			ExpirationBatch:    v.GetInt("scheduler.expiration_batch"),
			LowStockInterval:   v.GetDuration("scheduler.low_stock_interval"),
			JobTimeout:         v.GetDuration("scheduler.job_timeout"),
		},
		Storage: StorageConfig{
			Driver:       v.GetString("storage.driver"),
			BaseDir:      v.GetString("storage.base_dir"),
			Bucket:       v.GetString("storage.bucket"),
			Region:       v.GetString("storage.region"),
			Endpoint:     v.GetString("storage.endpoint"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Document: DocumentConfig{
			RemoteChromeURL: v.GetString("document.remote_chrome_url"),
			RenderTimeout:   v.GetDuration("document.render_timeout"),
			IssuerName:      v.GetString("document.issuer_name"),
			IssuerTaxID:     v.GetString("document.issuer_tax_id"),
			IssuerAddress:   v.GetString("document.issuer_address"),
			Locale:          v.GetString("document.locale"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "biblioteca-backend"
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
		cfg.Database.DBName = "biblioteca"
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
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "biblioteca-auth"
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// No CORS origin default: cross-origin requests stay blocked until configured.
	if cfg.HTTP.CheckoutRateLimit == 0 {
		cfg.HTTP.CheckoutRateLimit = 10
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Stripe.SuccessURL == "" {
		cfg.Stripe.SuccessURL = "http://localhost:" + cfg.App.Port + "/api/v1/payments/stripe/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cfg.Stripe.CancelURL == "" {
		cfg.Stripe.CancelURL = "http://localhost:3000/cart"
	}
	if cfg.Stripe.ConfirmationURL == "" {
		cfg.Stripe.ConfirmationURL = "http://localhost:3000/orders"
	}
	if cfg.Stripe.SessionTTL == 0 {
		cfg.Stripe.SessionTTL = 24 * time.Hour
	}
	if cfg.Stripe.BoletoExpiresAfterDays == 0 {
		cfg.Stripe.BoletoExpiresAfterDays = 3
	}
	if cfg.Library.Currency == "" {
		cfg.Library.Currency = "BRL"
	}
	if cfg.Library.MaxActiveLoans == 0 {
		cfg.Library.MaxActiveLoans = 3
	}
	if cfg.Library.LoanPeriodDays == 0 {
		cfg.Library.LoanPeriodDays = 7
	}
	if cfg.Library.PenaltyRate == "" {
		cfg.Library.PenaltyRate = "0.10"
	}
	if cfg.Library.SaleTTL == 0 {
		cfg.Library.SaleTTL = 24 * time.Hour
	}
	if cfg.Library.LowStockThreshold == 0 {
		cfg.Library.LowStockThreshold = 5
	}
	if cfg.Scheduler.ExpirationInterval == 0 {
		cfg.Scheduler.ExpirationInterval = 15 * time.Minute
	}
	if cfg.Scheduler.ExpirationBatch == 0 {
		cfg.Scheduler.ExpirationBatch = 100
	}
	if cfg.Scheduler.LowStockInterval == 0 {
		cfg.Scheduler.LowStockInterval = time.Hour
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "filesystem"
	}
	if cfg.Storage.BaseDir == "" {
		cfg.Storage.BaseDir = "./data/documents"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Document.RenderTimeout == 0 {
		cfg.Document.RenderTimeout = 30 * time.Second
	}
	if cfg.Document.IssuerName == "" {
		cfg.Document.IssuerName = "Biblioteca"
	}
	if cfg.Document.Locale == "" {
		cfg.Document.Locale = "pt-BR"
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
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Library.MaxActiveLoans < 1 {
		return fmt.Errorf("library.max_active_loans must be at least 1")
	}
	if c.Library.LoanPeriodDays < 1 {
		return fmt.Errorf("library.loan_period_days must be at least 1")
	}
	if _, err := c.Library.PenaltyRateDecimal(); err != nil {
		return err
	}
	if c.Library.LowStockThreshold < 0 {
		return fmt.Errorf("library.low_stock_threshold cannot be negative")
	}

	switch c.Storage.Driver {
	case "filesystem":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 's3' or 'filesystem', got %q", c.Storage.Driver)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Stripe.SecretKey == "" || c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe.secret_key and stripe.webhook_secret are required in production")
		}
		if c.Stripe.IsTestMode {
			return fmt.Errorf("stripe.is_test_mode must be false in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	return nil
}

// PenaltyRateDecimal parses the configured penalty rate
func (l LibraryConfig) PenaltyRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(l.PenaltyRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("library.penalty_rate %q is not a decimal: %w", l.PenaltyRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("library.penalty_rate cannot be negative")
	}
	return rate, nil
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DSN returns the database connection string with properly escaped values
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
