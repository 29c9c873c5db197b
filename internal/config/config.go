package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values come from env (optionally seeded from a .env file).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Platform  PlatformConfig
	Token     TokenConfig
	Identity  IdentityConfig
	DB        DBConfig
	Redis     RedisConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL prefixes meeting links. Empty means "use the request origin".
	PublicBaseURL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration

	// ExternalAPIKeys, when non-empty, is the allow-list for x-api-key.
	ExternalAPIKeys []string
}

// PlatformConfig describes the hosted call/chat platform.
// Missing credentials are not a load error: the issuance endpoint reports them as 500.
type PlatformConfig struct {
	Provider  string
	APIKey    string
	APISecret string
	BaseURL   string

	// LiveKitURL is only used by the livekit provider.
	LiveKitURL string

	RequestTimeout time.Duration
}

type TokenConfig struct {
	TTL       time.Duration
	ClockSkew time.Duration
}

type IdentityConfig struct {
	JWKSURL string
	Issuer  string
}

// DBConfig is optional; an empty Host selects the in-memory stores.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional; an empty Host selects the in-memory limiter.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

const (
	ProviderStream  = "stream"
	ProviderLiveKit = "livekit"

	defaultAllowedOrigin = "http://localhost:3000"
	defaultStreamBaseURL = "https://video.stream-io-api.com"
)

func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = intVar(parseErrs, "APP_PORT", 8080)
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	c.CORS.AllowedOrigins = listVar("ALLOWED_ORIGINS")

	c.RateLimit.MaxRequests, parseErrs = intVar(parseErrs, "RATE_LIMIT_MAX", 0)
	c.RateLimit.Window, parseErrs = durationVar(parseErrs, "RATE_LIMIT_WINDOW")
	c.RateLimit.ExternalAPIKeys = listVar("EXTERNAL_API_KEYS")

	c.Platform.Provider = strings.ToLower(strings.TrimSpace(os.Getenv("PLATFORM_PROVIDER")))
	c.Platform.APIKey = strings.TrimSpace(os.Getenv("PLATFORM_API_KEY"))
	c.Platform.APISecret = os.Getenv("PLATFORM_API_SECRET")
	c.Platform.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PLATFORM_BASE_URL")), "/")
	c.Platform.LiveKitURL = strings.TrimSpace(os.Getenv("LIVEKIT_URL"))
	c.Platform.RequestTimeout, parseErrs = durationVar(parseErrs, "PLATFORM_TIMEOUT")

	c.Token.TTL, parseErrs = durationVar(parseErrs, "TOKEN_TTL")
	c.Token.ClockSkew, parseErrs = durationVar(parseErrs, "TOKEN_CLOCK_SKEW")

	c.Identity.JWKSURL = strings.TrimSpace(os.Getenv("IDP_JWKS_URL"))
	c.Identity.Issuer = strings.TrimSpace(os.Getenv("IDP_ISSUER"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = intVar(parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = intVar(parseErrs, "REDIS_PORT", 6379)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyDefaults fills optional values. Production must still set DB_SSLMODE explicitly.
func (c *Config) ApplyDefaults() {
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 10
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Platform.Provider == "" {
		c.Platform.Provider = ProviderStream
	}
	if c.Platform.BaseURL == "" && c.Platform.Provider == ProviderStream {
		c.Platform.BaseURL = defaultStreamBaseURL
	}
	if c.Platform.RequestTimeout <= 0 {
		c.Platform.RequestTimeout = 10 * time.Second
	}
	if c.Token.TTL <= 0 {
		c.Token.TTL = time.Hour
	}
	if c.Token.ClockSkew <= 0 {
		c.Token.ClockSkew = time.Minute
	}
	if c.DB.Host != "" && c.DB.SSLMode == "" && !c.IsProduction() {
		c.DB.SSLMode = "disable"
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	switch c.Platform.Provider {
	case ProviderStream:
	case ProviderLiveKit:
		if c.Platform.LiveKitURL == "" {
			errs = append(errs, errors.New("LIVEKIT_URL is required when PLATFORM_PROVIDER is livekit"))
		}
	default:
		errs = append(errs, fmt.Errorf("PLATFORM_PROVIDER must be one of stream, livekit, got %q", c.Platform.Provider))
	}

	if c.Token.TTL <= c.Token.ClockSkew {
		errs = append(errs, errors.New("TOKEN_TTL must be greater than TOKEN_CLOCK_SKEW"))
	}

	if c.Identity.JWKSURL != "" && c.Identity.Issuer == "" && c.IsProduction() {
		errs = append(errs, errors.New("IDP_ISSUER is required in production when IDP_JWKS_URL is set"))
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else if !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsDevelopment reports whether CORS and rate limiting are bypassed.
func (c Config) IsDevelopment() bool {
	return c.App.Env == "local" || c.App.Env == "dev"
}

// PlatformConfigured reports whether the platform credentials are present.
func (c Config) PlatformConfigured() bool {
	return c.Platform.APIKey != "" && c.Platform.APISecret != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func intVar(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

// durationVar returns 0 for unset keys so ApplyDefaults can fill them in.
func durationVar(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func listVar(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
