package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME,default=nightshift-messenger"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	HTTPAddr    string `env:"HTTP_ADDR,default=:8080"`
	ObsHTTPAddr string `env:"OBS_HTTP_ADDR,default=:8090"`

	// Workflow
	RequireApproval bool   `env:"REQUIRE_APPROVAL,default=false"`
	CategoriesFile  string `env:"CATEGORIES_FILE"`
	Timezone        string `env:"TIMEZONE,default=America/Halifax"`

	// Storage
	StoreDriver string `env:"STORE_DRIVER,default=postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Email
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM,default=EVP - Night Shift <onboarding@resend.dev>"`
	ReviewerEmail string `env:"REVIEWER_EMAIL"`
	ReviewURL     string `env:"REVIEW_URL"`

	// JWT
	JWTSecret    string `env:"JWT_SECRET"`
	JWTIssuer    string `env:"JWT_ISSUER,default=nightshift-auth"`
	JWTAudience  string `env:"JWT_AUDIENCE,default=nightshift-clients"`
	ReviewerRole string `env:"REVIEWER_ROLE,default=reviewer"`

	// Phone verification
	RedisAddr           string        `env:"REDIS_ADDR"`
	VerificationTTL     time.Duration `env:"VERIFICATION_TTL,default=10m"`
	VerificationDevMode bool          `env:"VERIFICATION_DEV_MODE,default=false"`

	// Lifecycle events
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=nightshift.messages"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS,default=30"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS,default=false"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT,default=15s"`

	// Observability
	TracingEnabled bool   `env:"TRACING_ENABLED,default=false"`
	JaegerURL      string `env:"JAEGER_URL,default=http://jaeger:14268/api/traces"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.HTTPAddr = fixPort(cfg.HTTPAddr)
	cfg.ObsHTTPAddr = fixPort(cfg.ObsHTTPAddr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", c.StoreDriver))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.VerificationTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_TTL must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// Brokers splits KAFKA_BROKERS. Empty means event publishing is off.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func fixPort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
