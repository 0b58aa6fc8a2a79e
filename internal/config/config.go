// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Identity provider modes.
const (
	IdentityGoTrue = "gotrue"
	IdentityGoogle = "google"
	IdentityLocal  = "local"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
	// HTTPAddr is the address the HTTP server listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// BaseURL is the public origin used for OAuth callbacks and checkout return URLs.
	BaseURL     string `mapstructure:"BASE_URL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// SessionSigningKey is a PEM private key (RSA or ECDSA) or a path to one. Takes precedence over SessionSecret.
	SessionSigningKey string `mapstructure:"SESSION_SIGNING_KEY"`
	// SessionVerifyKey is the optional matching public key; derived from the private key when empty.
	SessionVerifyKey string `mapstructure:"SESSION_VERIFY_KEY"`
	// SessionSecret is an HS256 secret of at least 32 bytes ("base64:" prefix accepted).
	SessionSecret     string `mapstructure:"SESSION_SECRET"`
	SessionIssuer     string `mapstructure:"SESSION_ISSUER"`
	SessionTTLRaw     string `mapstructure:"SESSION_TTL"`
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	CookieSecure      bool   `mapstructure:"COOKIE_SECURE"`

	// Argon2 cost. Memory is in KiB.
	HashMemory  uint32 `mapstructure:"HASH_MEMORY_KIB"`
	HashTime    uint32 `mapstructure:"HASH_ITERATIONS"`
	HashThreads uint8  `mapstructure:"HASH_THREADS"`

	// IdentityProvider selects the federated identity backend: gotrue, google or local.
	IdentityProvider       string `mapstructure:"IDENTITY_PROVIDER"`
	SupabaseURL            string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey        string `mapstructure:"SUPABASE_ANON_KEY"`
	SupabaseServiceRoleKey string `mapstructure:"SUPABASE_SERVICE_ROLE_KEY"`
	// OAuthProvider is the GoTrue external provider used by BeginFederatedSignIn when the caller names none.
	OAuthProvider      string `mapstructure:"OAUTH_PROVIDER"`
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`

	StripeSecretKey string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeTrialDays int64  `mapstructure:"STRIPE_TRIAL_DAYS"`

	// RedisURL enables the Redis session denylist; an in-memory denylist is used when empty.
	RedisURL string `mapstructure:"REDIS_URL"`

	// KafkaBrokers is a comma-separated list; when set, activity entries are also published to Kafka.
	KafkaBrokers       string `mapstructure:"KAFKA_BROKERS"`
	KafkaActivityTopic string `mapstructure:"KAFKA_ACTIVITY_TOPIC"`
	// Worker-only.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	LokiURL      string `mapstructure:"LOKI_URL"`

	OTLPEndpoint   string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelService    string `mapstructure:"OTEL_SERVICE_NAME"`
	SentryDSN      string `mapstructure:"SENTRY_DSN"`
	CollaboratorTO string `mapstructure:"COLLABORATOR_TIMEOUT"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_SIGNING_KEY", "")
	v.SetDefault("SESSION_VERIFY_KEY", "")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_ISSUER", "saasgate")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("HASH_MEMORY_KIB", 64*1024)
	v.SetDefault("HASH_ITERATIONS", 3)
	v.SetDefault("HASH_THREADS", 2)
	v.SetDefault("IDENTITY_PROVIDER", IdentityGoTrue)
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_SERVICE_ROLE_KEY", "")
	v.SetDefault("OAUTH_PROVIDER", "github")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_TRIAL_DAYS", 14)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_ACTIVITY_TOPIC", "saasgate.activity")
	v.SetDefault("KAFKA_GROUP_ID", "saasgate-activity-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "saasgate")
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("COLLABORATOR_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("TRUST_PROXY", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// Plain-HTTP localhost needs non-secure cookies unless explicitly configured.
	if _, explicit := os.LookupEnv("COOKIE_SECURE"); cfg.IsDevelopment() && !explicit && !v.InConfig("cookie_secure") {
		cfg.CookieSecure = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and cross-field constraints.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if strings.TrimSpace(c.SessionSigningKey) == "" && strings.TrimSpace(c.SessionSecret) == "" {
		return errors.New("config: SESSION_SIGNING_KEY or SESSION_SECRET must be set")
	}
	if !c.IsDevelopment() && c.StripeSecretKey == "" {
		return errors.New("config: STRIPE_SECRET_KEY must be set outside development")
	}
	switch c.IdentityProvider {
	case IdentityGoTrue:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return errors.New("config: SUPABASE_URL and SUPABASE_ANON_KEY must be set for IDENTITY_PROVIDER=gotrue")
		}
	case IdentityGoogle:
		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			return errors.New("config: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set for IDENTITY_PROVIDER=google")
		}
	case IdentityLocal:
		if !c.IsDevelopment() {
			return errors.New("config: IDENTITY_PROVIDER=local is only allowed in development")
		}
	default:
		return errors.New("config: IDENTITY_PROVIDER must be gotrue, google or local")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development (or unset).
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// SessionTTL parses SESSION_TTL. Returns 24h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// CollaboratorTimeout parses COLLABORATOR_TIMEOUT. Returns 10s if unset or invalid.
func (c *Config) CollaboratorTimeout() time.Duration {
	d, err := time.ParseDuration(c.CollaboratorTO)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
