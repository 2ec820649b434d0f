package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Sync     SyncConfig
	Shopify  ShopifyConfig
	TalkSim  TalkSimConfig
	SMTP     SMTPConfig
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
}

// RedisConfig holds Redis connection settings. Redis backs the webhook
// delivery dedup store; when disabled, an in-memory store is used instead.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string
}

// SyncConfig holds catalog synchronizer settings
type SyncConfig struct {
	Enabled    bool
	Interval   time.Duration
	RunOnStart bool
	BatchSize  int
	BatchPause time.Duration
}

// ShopifyConfig holds storefront API settings
type ShopifyConfig struct {
	ShopDomain    string // e.g. "my-store.myshopify.com"
	AccessToken   string
	APIVersion    string
	WebhookSecret string
	MinInterval   time.Duration // client-side spacing between outbound calls
}

// TalkSimConfig holds fulfillment vendor API settings
type TalkSimConfig struct {
	BaseURL  string
	Email    string
	Password string
	DealerID string
	TokenTTL time.Duration
}

// SMTPConfig holds notification mail settings
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with NETESIM_ prefix (e.g., NETESIM_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("NETESIM")
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
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
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
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			Enabled:    v.GetBool("sync.enabled"),
			Interval:   v.GetDuration("sync.interval"),
			RunOnStart: v.GetBool("sync.run_on_start"),
			BatchSize:  v.GetInt("sync.batch_size"),
			BatchPause: v.GetDuration("sync.batch_pause"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:    v.GetString("shopify.shop_domain"),
			AccessToken:   v.GetString("shopify.access_token"),
			APIVersion:    v.GetString("shopify.api_version"),
			WebhookSecret: v.GetString("shopify.webhook_secret"),
			MinInterval:   v.GetDuration("shopify.min_interval"),
		},
		TalkSim: TalkSimConfig{
			BaseURL:  v.GetString("talksim.base_url"),
			Email:    v.GetString("talksim.email"),
			Password: v.GetString("talksim.password"),
			DealerID: v.GetString("talksim.dealer_id"),
			TokenTTL: v.GetDuration("talksim.token_ttl"),
		},
		SMTP: SMTPConfig{
			Enabled:  v.GetBool("smtp.enabled"),
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
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
		cfg.App.Name = "netesim-backend"
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
		cfg.Database.DBName = "netesim"
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
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB, webhook payloads are small
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 6 * time.Hour
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 5
	}
	if cfg.Sync.BatchPause == 0 {
		cfg.Sync.BatchPause = 2 * time.Second
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-01"
	}
	if cfg.Shopify.MinInterval == 0 {
		cfg.Shopify.MinInterval = 500 * time.Millisecond
	}
	if cfg.TalkSim.TokenTTL == 0 {
		cfg.TalkSim.TokenTTL = 60 * time.Minute
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
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
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be positive")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Shopify.ShopDomain == "" {
			return fmt.Errorf("shopify.shop_domain is required in production")
		}
		if c.Shopify.AccessToken == "" {
			return fmt.Errorf("shopify.access_token is required in production")
		}
		if c.Shopify.WebhookSecret == "" {
			return fmt.Errorf("shopify.webhook_secret is required in production")
		}
		if c.TalkSim.BaseURL == "" {
			return fmt.Errorf("talksim.base_url is required in production")
		}
		if c.TalkSim.Email == "" || c.TalkSim.Password == "" {
			return fmt.Errorf("talksim credentials are required in production")
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
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BaseURL returns the storefront Admin API base, e.g.
// "https://my-store.myshopify.com/admin/api/2024-01"
func (s *ShopifyConfig) BaseURL() string {
	return fmt.Sprintf("https://%s/admin/api/%s", s.ShopDomain, s.APIVersion)
}
