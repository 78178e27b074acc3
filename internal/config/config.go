package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvPath    = ".env"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Postgres PostgresConfig `yaml:"postgres"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Pricing  PricingConfig  `yaml:"pricing"`
}

type AppConfig struct {
	Name           string        `yaml:"name"`
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	AcquireTimeout  time.Duration `yaml:"acquire_timeout"`
}

// DSN returns a key/value connection string understood by pgx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the same connection as a pgx5:// URL for golang-migrate.
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

type AuthConfig struct {
	Provider        string        `yaml:"provider"`
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a Redis session store should be used.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

type MinIOConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Bucket     string        `yaml:"bucket"`
	UseSSL     bool          `yaml:"use_ssl"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

// PricingConfig holds the business policy values used by checkout and
// subscriptions.
type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal            `yaml:"free_shipping_threshold"`
	ShippingFee           decimal.Decimal            `yaml:"shipping_fee"`
	DefaultCountry        string                     `yaml:"default_country"`
	SubscriptionPrices    map[string]decimal.Decimal `yaml:"subscription_prices"`
	SubscriptionMonths    int                        `yaml:"subscription_months"`
}

var (
	ErrMissingDBCredentials = errors.New("config: DB_USER, DB_PASSWORD and DB_NAME are required")
	ErrMissingJWTSecret     = errors.New("config: JWT_SECRET is required for the local auth provider")
)

// Default returns a configuration populated with the storefront defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:           "petite-maison",
			Port:           "4000",
			Env:            "development",
			LogLevel:       "debug",
			RequestTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            "5432",
			SSLMode:         "disable",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			AcquireTimeout:  2 * time.Second,
		},
		Auth: AuthConfig{
			Provider:        "local",
			AccessTokenTTL:  7 * 24 * time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
		},
		MinIO: MinIOConfig{
			Bucket:     "fanzine",
			PresignTTL: 15 * time.Minute,
		},
		Pricing: PricingConfig{
			FreeShippingThreshold: decimal.RequireFromString("50.00"),
			ShippingFee:           decimal.RequireFromString("5.99"),
			DefaultCountry:        "FR",
			SubscriptionPrices: map[string]decimal.Decimal{
				"PAPER":   decimal.RequireFromString("29.99"),
				"DIGITAL": decimal.RequireFromString("19.99"),
				"BOTH":    decimal.RequireFromString("39.99"),
			},
			SubscriptionMonths: 12,
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if present), then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(defaultEnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")

	setString(&cfg.Postgres.Host, "DB_HOST")
	setString(&cfg.Postgres.Port, "DB_PORT")
	setString(&cfg.Postgres.User, "DB_USER")
	setString(&cfg.Postgres.Password, "DB_PASSWORD")
	setString(&cfg.Postgres.DBName, "DB_NAME")
	setString(&cfg.Postgres.SSLMode, "DB_SSLMODE")
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid DB_MAX_CONNS %q: %w", v, err)
		}
		cfg.Postgres.MaxConns = int32(n)
	}

	setString(&cfg.Auth.Provider, "AUTH_PROVIDER")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_EXPIRES_IN %q: %w", v, err)
		}
		cfg.Auth.AccessTokenTTL = d
	}

	setString(&cfg.Redis.URL, "REDIS_URL")

	setString(&cfg.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinIO.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinIO.Bucket, "MINIO_BUCKET")

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.DBName == "" {
		return ErrMissingDBCredentials
	}
	if c.Auth.Provider == "local" && c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Pricing.FreeShippingThreshold.IsNegative() || c.Pricing.ShippingFee.IsNegative() {
		return errors.New("config: pricing values must be non-negative")
	}
	if c.Pricing.SubscriptionMonths < 1 {
		return errors.New("config: subscription_months must be at least 1")
	}
	for _, t := range []string{"PAPER", "DIGITAL", "BOTH"} {
		if _, ok := c.Pricing.SubscriptionPrices[t]; !ok {
			return fmt.Errorf("config: missing subscription price for %s", t)
		}
	}
	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
