package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EncryptionKeyLength is the required length of the API key encryption secret (AES-256).
const EncryptionKeyLength = 32

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type EmailProvider string

const (
	EmailProviderResend EmailProvider = "resend"
	EmailProviderSMTP   EmailProvider = "smtp"
	EmailProviderNoop   EmailProvider = "noop"
)

// Config holds the configuration for the QuietDash API server and its dependencies.
type Config struct {
	// Listen is the address the API server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// MarketingURL is the public URL of the marketing site. Verification links point to it.
	MarketingURL string `yaml:"marketing_url" mapstructure:"marketing_url"`
	// ReferralBaseURL is the URL that referral codes are appended to as ?ref=<code>.
	ReferralBaseURL string `yaml:"referral_base_url" mapstructure:"referral_base_url"`
	// CORSOrigins is the list of allowed browser origins. "*" allows every origin.
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers are honoured.
	// Empty means the client IP is always the peer address.
	TrustedProxies []string `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Auth holds the bearer token configuration.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Encryption holds the API key encryption configuration.
	Encryption *EncryptionConfig `yaml:"encryption" mapstructure:"encryption"`
	// Email holds the transactional email configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
	// Cache holds the cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Display holds the e-ink display rendering configuration.
	Display *DisplayConfig `yaml:"display" mapstructure:"display"`
	// AudienceSync holds the configuration of the periodic mailing list resync job.
	AudienceSync *AudienceSyncConfig `yaml:"audience_sync" mapstructure:"audience_sync"`
	// RateLimit holds the waitlist signup rate limit.
	RateLimit *RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Driver is the database driver ("sqlite" or "postgres").
	Driver DatabaseDriver `yaml:"driver" mapstructure:"driver"`
	// Path is the path to the database file (sqlite).
	Path string `yaml:"path" mapstructure:"path"`
	// DSN is the connection string (postgres).
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// AuthConfig holds the token signing configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC secret used to sign access tokens.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	// TokenTTL is how long an access token stays valid.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// EncryptionConfig holds the secret used to encrypt stored API keys.
type EncryptionConfig struct {
	// Key must be exactly 32 characters long.
	Key string `yaml:"key" mapstructure:"key"`
}

// EmailConfig holds the email configuration.
type EmailConfig struct {
	// Provider selects the delivery backend ("resend", "smtp" or "noop").
	Provider EmailProvider `yaml:"provider" mapstructure:"provider"`
	// FromEmail is the email address from which emails are sent.
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	// FromName is the name from which emails are sent.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// Resend holds the Resend API configuration.
	Resend *ResendConfig `yaml:"resend" mapstructure:"resend"`
	// SMTP holds the SMTP server configuration.
	SMTP *SMTPConfig `yaml:"smtp" mapstructure:"smtp"`
}

// ResendConfig holds the Resend API configuration.
type ResendConfig struct {
	// APIKey is the Resend API key.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// AudienceID is the audience verified signups are added to.
	AudienceID string `yaml:"audience_id" mapstructure:"audience_id"`
	// BaseURL is the Resend API base URL.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SMTPConfig holds the SMTP server configuration.
type SMTPConfig struct {
	// Host is the SMTP server host.
	Host string `yaml:"host" mapstructure:"host"`
	// Port is the SMTP server port.
	Port int `yaml:"port" mapstructure:"port"`
	// Username is the SMTP username.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the SMTP password.
	Password string `yaml:"password" mapstructure:"password"`
	// UseTLS indicates whether to use STARTTLS for the SMTP connection.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`
	// UseSSL indicates whether to use implicit TLS for the SMTP connection.
	UseSSL bool `yaml:"use_ssl" mapstructure:"use_ssl"`
	// InsecureSkipVerify indicates whether to skip TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// CacheConfig holds the configuration for the cache engine.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the Redis server if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// DisplayConfig holds the display rendering configuration.
type DisplayConfig struct {
	// Title is the text drawn in the header bar.
	Title string `yaml:"title" mapstructure:"title"`
	// Timezone is the IANA timezone used for the clock widget.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// AudienceSyncConfig holds the configuration for the mailing list resync job.
type AudienceSyncConfig struct {
	// Enabled indicates whether the job is scheduled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Schedule is the cron expression of the job.
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// RateLimitConfig limits waitlist signups per client IP.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate. Zero disables the limiter.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// Burst is the number of requests allowed at once.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

func Load(path string) (*Config, error) {
	// secrets are usually kept in a .env file next to the binary
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env file", "error", err)
	}

	v := viper.New()

	bindNestedEnv(v)

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("QUIETDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.quietdash")
		v.AddConfigPath("/etc/quietdash")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file is found, use defaults and env
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3000")
	v.SetDefault("marketing_url", "http://localhost:5174")
	v.SetDefault("referral_base_url", "https://quietdash.com/")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("trusted_proxies", []string{})

	v.SetDefault("database.driver", DatabaseDriverSQLite)
	v.SetDefault("database.path", "./data/quietdash.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)

	v.SetDefault("encryption.key", "")

	v.SetDefault("email.provider", EmailProviderNoop)
	v.SetDefault("email.from_name", "QuietDash")
	v.SetDefault("email.from_email", "hello@quietdash.com")
	v.SetDefault("email.resend.api_key", "")
	v.SetDefault("email.resend.audience_id", "")
	v.SetDefault("email.resend.base_url", "https://api.resend.com")
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.use_ssl", false)
	v.SetDefault("email.smtp.insecure_skip_verify", false)

	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")

	v.SetDefault("display.title", "E-Ink Dashboard")
	v.SetDefault("display.timezone", "Local")

	v.SetDefault("audience_sync.enabled", true)
	v.SetDefault("audience_sync.schedule", "0 * * * *") // hourly

	v.SetDefault("rate_limit.requests_per_minute", 10)
	v.SetDefault("rate_limit.burst", 5)
}

// The auto env function from viper only works for keys it already knows about.
// The plain variable names used by existing deployments are bound explicitly.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("auth.jwt_secret", "QUIETDASH_AUTH_JWT_SECRET", "JWT_SECRET")
	v.MustBindEnv("encryption.key", "QUIETDASH_ENCRYPTION_KEY", "ENCRYPTION_KEY")
	v.MustBindEnv("email.resend.api_key", "QUIETDASH_EMAIL_RESEND_API_KEY", "RESEND_API_KEY")
	v.MustBindEnv("email.resend.audience_id", "QUIETDASH_EMAIL_RESEND_AUDIENCE_ID", "RESEND_AUDIENCE_ID")
	v.MustBindEnv("marketing_url", "QUIETDASH_MARKETING_URL", "MARKETING_URL")
	v.MustBindEnv("database.dsn", "QUIETDASH_DATABASE_DSN", "DATABASE_URL")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing quietdash config")
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.Database == nil {
		return fmt.Errorf("missing database config")
	}
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	case DatabaseDriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Auth == nil || c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be greater than 0")
	}

	if c.Encryption == nil || len(c.Encryption.Key) != EncryptionKeyLength {
		return fmt.Errorf("encryption key must be exactly %d characters long", EncryptionKeyLength)
	}

	if c.Email == nil {
		c.Email = &EmailConfig{Provider: EmailProviderNoop}
	}
	switch c.Email.Provider {
	case EmailProviderResend:
		if c.Email.Resend == nil || c.Email.Resend.APIKey == "" {
			return fmt.Errorf("resend API key is required when the resend email provider is enabled")
		}
		if c.Email.Resend.AudienceID == "" {
			log.Warn("resend audience ID not configured, verified signups will not be synced")
		}
	case EmailProviderSMTP:
		if c.Email.SMTP == nil || c.Email.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required when the smtp email provider is enabled")
		}
	case EmailProviderNoop:
		log.Warn("email provider not configured, email functionality will not work")
	default:
		return fmt.Errorf("unsupported email provider %q", c.Email.Provider)
	}
	if c.Email.Provider != EmailProviderNoop && c.Email.FromEmail == "" {
		return fmt.Errorf("from email is required when email is enabled")
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is enabled")
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{
			Type: CacheTypeMemory,
		}
	}

	if c.Display == nil {
		c.Display = &DisplayConfig{Title: "E-Ink Dashboard", Timezone: "Local"}
	}
	if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
		return fmt.Errorf("invalid display timezone %q: %w", c.Display.Timezone, err)
	}

	if c.AudienceSync != nil && c.AudienceSync.Enabled {
		if len(strings.Fields(c.AudienceSync.Schedule)) != 5 {
			return fmt.Errorf("audience sync schedule must be a valid cron expression with 5 fields (minute hour day month weekday)")
		}
	}

	if c.RateLimit != nil && c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("at least one cors origin is required, use \"*\" to allow all")
	}

	if c.ReferralBaseURL == "" {
		return fmt.Errorf("referral base URL is required")
	}

	return nil
}

func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)
	c.MarketingURL = urlSanitize(c.MarketingURL)
	c.ReferralBaseURL = strings.TrimSpace(c.ReferralBaseURL)
	for i, origin := range c.CORSOrigins {
		c.CORSOrigins[i] = urlSanitize(origin)
	}
	for i, proxy := range c.TrustedProxies {
		c.TrustedProxies[i] = strings.TrimSpace(proxy)
	}

	if c.Email != nil {
		c.Email.Provider = EmailProvider(strings.ToLower(strings.TrimSpace(string(c.Email.Provider))))
		if c.Email.Resend != nil {
			c.Email.Resend.BaseURL = urlSanitize(c.Email.Resend.BaseURL)
		}
	}

	if c.Auth != nil {
		c.Auth.JWTSecret = strings.TrimSpace(c.Auth.JWTSecret)
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

// GetRequestsPerMinute returns the configured waitlist signup rate or 0 if unlimited.
func (c *Config) GetRequestsPerMinute() int {
	if c.RateLimit == nil {
		return 0
	}
	return c.RateLimit.RequestsPerMinute
}

// GetDisplayLocation returns the timezone used to render the clock widget.
func (c *Config) GetDisplayLocation() *time.Location {
	if c.Display == nil {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
