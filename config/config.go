package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port       string
	Env        string
	DBURL      string
	JWTSecret  string
	CORSOrigin string
	AppURL     string
	RedisAddr  string

	AdminSessionTTL time.Duration

	DefaultCommissionRate decimal.Decimal
	DefaultMinimumPayout  decimal.Decimal

	Mpesa  MpesaConfig
	Google GoogleConfig

	// DotEnvLoaded and Warnings are reported by the caller once its logger exists.
	DotEnvLoaded bool
	Warnings     []string
}

type MpesaConfig struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

type GoogleConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	FrontendRedirect string
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadDotEnv() bool {
	return godotenv.Load() == nil
}

// DatabaseURL is enough for the maintenance commands, which never talk to the gateway.
func DatabaseURL() (string, error) {
	loadDotEnv()
	var l loader
	url := l.must("DB_URL")
	return url, l.err()
}

// LoadEnv reads the process environment, after merging a local .env when present.
// Every missing required key is reported in a single error.
func LoadEnv() (*Config, error) {
	dotEnv := loadDotEnv()
	var l loader

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("APP_ENV", "development"),
		DBURL:      l.must("DB_URL"),
		JWTSecret:  l.must("JWT_SECRET"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		AppURL:     strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		RedisAddr:  getEnv("REDIS_ADDR", ""),

		AdminSessionTTL: l.duration("ADMIN_SESSION_TTL", 24*time.Hour),

		DefaultCommissionRate: l.number("DEFAULT_COMMISSION_RATE", decimal.NewFromInt(8)),
		DefaultMinimumPayout:  l.number("DEFAULT_MINIMUM_PAYOUT", decimal.NewFromInt(1000)),

		Mpesa: MpesaConfig{
			Environment:    getEnv("MPESA_ENVIRONMENT", "sandbox"),
			ConsumerKey:    l.must("MPESA_CONSUMER_KEY"),
			ConsumerSecret: l.must("MPESA_CONSUMER_SECRET"),
			ShortCode:      l.must("MPESA_SHORTCODE"),
			Passkey:        l.must("MPESA_PASSKEY"),
			CallbackURL:    l.must("MPESA_CALLBACK_URL"),
		},

		Google: GoogleConfig{
			ClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
			FrontendRedirect: getEnv("GOOGLE_FRONTEND_REDIRECT", ""),
		},

		DotEnvLoaded: dotEnv,
	}
	if err := l.err(); err != nil {
		return nil, err
	}
	cfg.Warnings = l.warnings
	return cfg, nil
}

type loader struct {
	missing  []string
	warnings []string
}

func (l *loader) err() error {
	if len(l.missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required environment variables: %s", strings.Join(l.missing, ", "))
}

func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.missing = append(l.missing, key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		l.warnings = append(l.warnings, fmt.Sprintf("invalid duration for %s=%q, using %s", key, raw, fallback))
		return fallback
	}
	return d
}

func (l *loader) number(key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		l.warnings = append(l.warnings, fmt.Sprintf("invalid number for %s=%q, using %s", key, raw, fallback))
		return fallback
	}
	return d
}
