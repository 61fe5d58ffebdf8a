package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	JDE         JDEConfig
	HTTPClient  HTTPClientConfig
	SMTP        SMTPConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
	DryRun      DryRunConfig
	Log         LogConfig
	HTTP        HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DryRunConfig holds the three independent dependency bypass switches.
// Any combination is valid.
type DryRunConfig struct {
	Database   bool
	Downstream bool
	Notifier   bool
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	SSLMode            string
	PoolMin            int
	PoolMax            int
	ConnectTimeout     time.Duration
	StatementTimeoutMS int
	LockTimeoutMS      int
	ConnMaxLifetime    int // in minutes
	ConnMaxIdleTime    int // in minutes
}

// JDEConfig holds downstream system settings
type JDEConfig struct {
	Host            string
	Port            int
	BaseURL         string // overrides Host/Port when set
	AnagrafichePath string
	FatturePath     string
	HealthPath      string
	Credentials     string // optional credentials for the Authorization header
}

// HTTPClientConfig holds outbound HTTP client settings
type HTTPClientConfig struct {
	Timeout     time.Duration
	Retries     int // extra attempts after the first call
	BackoffBase time.Duration
}

// SMTPConfig holds failure notification settings
type SMTPConfig struct {
	Host      string
	Port      int
	Timeout   time.Duration
	From      string
	ToDefault []string
}

// RedisConfig holds Redis connection settings for the idempotency store
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// IdempotencyConfig holds request deduplication settings
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
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
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SCAFI_ prefix (e.g. SCAFI_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("SCAFI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("database.host"),
			Port:               v.GetInt("database.port"),
			User:               v.GetString("database.user"),
			Password:           v.GetString("database.password"),
			DBName:             v.GetString("database.dbname"),
			SSLMode:            v.GetString("database.sslmode"),
			PoolMin:            v.GetInt("database.pool_min"),
			PoolMax:            v.GetInt("database.pool_max"),
			ConnectTimeout:     v.GetDuration("database.connect_timeout"),
			StatementTimeoutMS: v.GetInt("database.statement_timeout_ms"),
			LockTimeoutMS:      v.GetInt("database.lock_timeout_ms"),
			ConnMaxLifetime:    v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime:    v.GetInt("database.conn_max_idle_time"),
		},
		JDE: JDEConfig{
			Host:            v.GetString("jde.host"),
			Port:            v.GetInt("jde.port"),
			BaseURL:         v.GetString("jde.base_url"),
			AnagrafichePath: v.GetString("jde.anagrafiche_path"),
			FatturePath:     v.GetString("jde.fatture_path"),
			HealthPath:      v.GetString("jde.health_path"),
			Credentials:     v.GetString("jde.credentials"),
		},
		HTTPClient: HTTPClientConfig{
			Timeout:     v.GetDuration("http_client.timeout"),
			Retries:     v.GetInt("http_client.retries"),
			BackoffBase: v.GetDuration("http_client.backoff_base"),
		},
		SMTP: SMTPConfig{
			Host:      v.GetString("smtp.host"),
			Port:      v.GetInt("smtp.port"),
			Timeout:   v.GetDuration("smtp.timeout"),
			From:      v.GetString("smtp.from"),
			ToDefault: v.GetStringSlice("smtp.to_default"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency.enabled"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		DryRun: DryRunConfig{
			Database:   v.GetBool("dryrun.database"),
			Downstream: v.GetBool("dryrun.downstream"),
			Notifier:   v.GetBool("dryrun.notifier"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
	}

	// Mail delivery stays suppressed unless explicitly enabled, matching the
	// legacy deployment default.
	if !v.IsSet("dryrun.notifier") {
		cfg.DryRun.Notifier = true
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
		cfg.App.Name = "scafi-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "127.0.0.1"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "scafiadm"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "scafisoc"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.PoolMin == 0 {
		cfg.Database.PoolMin = 1
	}
	if cfg.Database.PoolMax == 0 {
		cfg.Database.PoolMax = 10
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 5 * time.Second
	}
	if cfg.Database.StatementTimeoutMS == 0 {
		cfg.Database.StatementTimeoutMS = 8000
	}
	if cfg.Database.LockTimeoutMS == 0 {
		cfg.Database.LockTimeoutMS = 3000
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.JDE.Host == "" {
		cfg.JDE.Host = "192.168.11.103"
	}
	if cfg.JDE.Port == 0 {
		cfg.JDE.Port = 8000
	}
	if cfg.JDE.AnagrafichePath == "" {
		cfg.JDE.AnagrafichePath = "/api/anagrafiche"
	}
	if cfg.JDE.FatturePath == "" {
		cfg.JDE.FatturePath = "/api/fatture"
	}
	if cfg.JDE.HealthPath == "" {
		cfg.JDE.HealthPath = "/health"
	}
	if cfg.HTTPClient.Timeout == 0 {
		cfg.HTTPClient.Timeout = 15 * time.Second
	}
	if cfg.HTTPClient.Retries == 0 {
		cfg.HTTPClient.Retries = 2
	}
	if cfg.HTTPClient.BackoffBase == 0 {
		cfg.HTTPClient.BackoffBase = 300 * time.Millisecond
	}
	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = "127.0.0.1"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 25
	}
	if cfg.SMTP.Timeout == 0 {
		cfg.SMTP.Timeout = 5 * time.Second
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = "noreply@scafi.it"
	}
	if len(cfg.SMTP.ToDefault) == 0 {
		cfg.SMTP.ToDefault = []string{"it@scafi.it"}
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
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
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.PoolMax <= 0 {
		return fmt.Errorf("database.pool_max must be positive")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("database.pool_min cannot be negative")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("database.pool_min (%d) cannot exceed database.pool_max (%d)",
			c.Database.PoolMin, c.Database.PoolMax)
	}
	if c.HTTPClient.Retries < 0 {
		return fmt.Errorf("http_client.retries cannot be negative")
	}
	if c.Database.StatementTimeoutMS < 0 || c.Database.LockTimeoutMS < 0 {
		return fmt.Errorf("database timeouts cannot be negative")
	}

	if c.App.Env == "production" {
		if !c.DryRun.Database && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if !c.DryRun.Database && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
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
	q.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}

// ResolvedBaseURL returns the downstream base URL, preferring the explicit override
func (j *JDEConfig) ResolvedBaseURL() string {
	if j.BaseURL != "" {
		return strings.TrimRight(j.BaseURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", j.Host, j.Port)
}

// RetryAttempts returns the total number of downstream calls to make
func (h *HTTPClientConfig) RetryAttempts() int {
	return 1 + h.Retries
}
