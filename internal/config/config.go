// Package config loads the service configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the file and environment leave a value empty.
const (
	DefaultConfigPath = "config.yaml"
	defaultAddr       = ":8080"
	defaultSiteURL    = "http://localhost:8080"
	defaultDSN        = "file:eventdesk.db"
	defaultJWTExpiry  = 12 * time.Hour
	defaultStaffTTL   = 10 * time.Hour
	defaultCurrency   = "cad"
	defaultMailDriver = MailDriverLog
	defaultLogLevel   = "info"
)

// Mail drivers.
const (
	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
	MailDriverSNS  = "sns"
)

// AppConfig holds process-level options passed in from the command line.
type AppConfig struct {
	ConfigPath string // YAML file path.
	EnvFile    string // Optional .env file.
}

// Config is the fully resolved service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Mail      MailConfig      `yaml:"mail"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`         // Listen address.
	SiteURL     string   `yaml:"site-url"`     // Public base URL used in emails and redirects.
	CORSOrigins []string `yaml:"cors-origins"` // Allowed browser origins for /v0/front.
}

// DatabaseConfig configures the primary database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // PostgreSQL or SQLite DSN.
}

// JWTConfig configures admin and staff session tokens.
type JWTConfig struct {
	Secret      string        `yaml:"secret"`       // HMAC signing secret.
	Expiry      time.Duration `yaml:"expiry"`       // Admin token lifetime.
	StaffExpiry time.Duration `yaml:"staff-expiry"` // Staff token lifetime.
}

// StripeConfig configures the payment gateway.
type StripeConfig struct {
	SecretKey     string `yaml:"secret-key"`     // API key.
	WebhookSecret string `yaml:"webhook-secret"` // Endpoint signing secret.
	Currency      string `yaml:"currency"`       // ISO currency code.
}

// MailConfig selects and configures the notification transport.
type MailConfig struct {
	Driver string     `yaml:"driver"` // log, smtp or sns.
	From   string     `yaml:"from"`   // Sender address.
	SMTP   SMTPConfig `yaml:"smtp"`
	SNS    SNSConfig  `yaml:"sns"`
}

// SMTPConfig configures direct SMTP delivery.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SNSConfig configures publishing mail jobs to an SNS topic.
type SNSConfig struct {
	Region   string `yaml:"region"`
	TopicARN string `yaml:"topic-arn"`
}

// RedisConfig configures the shared rate limit store.
type RedisConfig struct {
	URL string `yaml:"url"` // redis:// URL; empty keeps limits in process.
}

// RateLimitConfig bounds public and staff endpoints.
type RateLimitConfig struct {
	BalancePerMinute int `yaml:"balance-per-minute"` // Balance lookups per client IP.
	LoginPerMinute   int `yaml:"login-per-minute"`   // Login attempts per client IP.
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level      string `yaml:"level"`        // logrus level name.
	Format     string `yaml:"format"`       // text or json.
	File       string `yaml:"file"`         // Rotated log file; stdout when empty.
	MaxSizeMB  int    `yaml:"max-size-mb"`  // Rotation size.
	MaxBackups int    `yaml:"max-backups"`  // Rotated files kept.
	MaxAgeDays int    `yaml:"max-age-days"` // Rotated file age limit.
}

// ResolveConfigPath picks the config path from the flag, CONFIG_PATH or the default.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("CONFIG_PATH")); env != "" {
		return env
	}
	return DefaultConfigPath
}

// ConfigExists reports whether the config file is present.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads the YAML file (optional), applies environment overrides and defaults.
func Load(app AppConfig) (*Config, error) {
	if envFile := strings.TrimSpace(app.EnvFile); envFile != "" {
		if errEnv := godotenv.Load(envFile); errEnv != nil {
			return nil, fmt.Errorf("config: load env file: %w", errEnv)
		}
	} else if errEnv := godotenv.Load(); errEnv != nil && !errors.Is(errEnv, os.ErrNotExist) {
		log.WithError(errEnv).Warn("config: .env not loaded")
	}

	cfg := &Config{}
	path := ResolveConfigPath(app.ConfigPath)
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
		log.Infof("config: %s not found, using environment only", path)
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// LoadDatabaseDSN resolves only the database DSN, for the migrate command.
func LoadDatabaseDSN(app AppConfig) (string, error) {
	cfg, err := Load(app)
	if err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database dsn is required")
	}
	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("config: mail.smtp.host is required for the smtp driver")
		}
	case MailDriverSNS:
		if c.Mail.SNS.TopicARN == "" {
			return fmt.Errorf("config: mail.sns.topic-arn is required for the sns driver")
		}
	default:
		return fmt.Errorf("config: unknown mail driver %q", c.Mail.Driver)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Server.SiteURL, "SITE_URL")
	if origins := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setDuration(&cfg.JWT.Expiry, "JWT_EXPIRY")
	setDuration(&cfg.JWT.StaffExpiry, "STAFF_JWT_EXPIRY")
	setString(&cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&cfg.Stripe.Currency, "STRIPE_CURRENCY")
	setString(&cfg.Mail.Driver, "MAIL_DRIVER")
	setString(&cfg.Mail.From, "MAIL_FROM")
	setString(&cfg.Mail.SMTP.Host, "SMTP_HOST")
	setInt(&cfg.Mail.SMTP.Port, "SMTP_PORT")
	setString(&cfg.Mail.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.Mail.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.Mail.SNS.Region, "AWS_REGION")
	setString(&cfg.Mail.SNS.TopicARN, "SNS_TOPIC_ARN")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.SiteURL == "" {
		cfg.Server.SiteURL = defaultSiteURL
	}
	cfg.Server.SiteURL = strings.TrimRight(cfg.Server.SiteURL, "/")
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = defaultDSN
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if cfg.JWT.StaffExpiry <= 0 {
		cfg.JWT.StaffExpiry = defaultStaffTTL
	}
	if cfg.Stripe.Currency == "" {
		cfg.Stripe.Currency = defaultCurrency
	}
	cfg.Mail.Driver = strings.ToLower(strings.TrimSpace(cfg.Mail.Driver))
	if cfg.Mail.Driver == "" {
		cfg.Mail.Driver = defaultMailDriver
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.RateLimit.BalancePerMinute <= 0 {
		cfg.RateLimit.BalancePerMinute = 20
	}
	if cfg.RateLimit.LoginPerMinute <= 0 {
		cfg.RateLimit.LoginPerMinute = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	parsed, errParse := strconv.Atoi(value)
	if errParse != nil {
		log.WithError(errParse).Warnf("config: ignoring %s", key)
		return
	}
	*dst = parsed
}

func setDuration(dst *time.Duration, key string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	parsed, errParse := time.ParseDuration(value)
	if errParse != nil {
		log.WithError(errParse).Warnf("config: ignoring %s", key)
		return
	}
	*dst = parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
