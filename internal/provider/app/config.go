package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/grantd/pkg/httpx"
	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite database file (default: ./grantd.db)
	DatabaseURL    string // Postgres connection URL, required for postgres
	PepperFile     string // File holding the pepper for secret hashing (default: ./pepper)

	RequireSecureTransport bool          // Reject plain HTTP protocol requests (default: true)
	TrustForwardedProto    bool          // Honour X-Forwarded-Proto from a TLS terminating proxy (default: false)
	TokenLifetime          time.Duration // Access token lifetime (default: 3600s)
	CodeLifetime           time.Duration // Authorization code lifetime (default: 600s)
	TokenRetention         time.Duration // Keep expired tokens this long before deleting, 0 keeps them forever
	RefreshRotation        bool          // Revoke refresh tokens on use (default: false)

	RedisAddr     string // Optional: enables the distributed refresh lock
	RedisPassword string
	RedisDB       int
	RedisPrefix   string // Key prefix (default: grantd:)

	SessionSecret string // Optional: HS256 secret for session tokens, empty disables sessions
	SessionIssuer string // Expected iss of session tokens (default: grantd)

	UsersFile      string // Optional: YAML users file for the password grant
	BootstrapToken string // Optional: token required to perform bootstrap
	MetricsEnabled bool   // Serve /metrics (default: true)

	RateLimits httpx.RateLimits // RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_{REQUESTS,WINDOW_SEC,BURST}
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first and never overrides set variables.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "grantd.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		RequireSecureTransport: getEnvBoolOrDefault("AUTH_REQUIRE_SECURE_TRANSPORT", true),
		TrustForwardedProto:    getEnvBoolOrDefault("AUTH_TRUST_FORWARDED_PROTO", false),
		TokenLifetime:          getEnvSecondsOrDefault("AUTH_TOKEN_LIFETIME", 3600*time.Second),
		CodeLifetime:           getEnvSecondsOrDefault("AUTH_CODE_LIFETIME", 600*time.Second),
		TokenRetention:         getEnvDurationOrDefault("AUTH_TOKEN_RETENTION", 0),
		RefreshRotation:        getEnvBoolOrDefault("AUTH_REFRESH_ROTATION", false),

		RedisAddr:     os.Getenv("AUTH_REDIS_ADDR"),
		RedisPassword: os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("AUTH_REDIS_DB", 0),
		RedisPrefix:   getEnvOrDefault("AUTH_REDIS_PREFIX", "grantd:"),

		SessionSecret: os.Getenv("AUTH_SESSION_SECRET"),
		SessionIssuer: getEnvOrDefault("AUTH_SESSION_ISSUER", "grantd"),

		UsersFile:      os.Getenv("AUTH_USERS_FILE"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),
		MetricsEnabled: getEnvBoolOrDefault("AUTH_METRICS_ENABLED", true),

		RateLimits: httpx.RateLimitsFromEnv(),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	if c.TokenLifetime <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_LIFETIME must be positive"))
	}
	if c.CodeLifetime <= 0 {
		errs = append(errs, errors.New("AUTH_CODE_LIFETIME must be positive"))
	}
	if c.TokenRetention < 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_RETENTION must not be negative"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

// getEnvSecondsOrDefault is getEnvDurationOrDefault with bare integers
// read as seconds, which is how lifetimes are reported in expires_in.
func getEnvSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return getEnvDurationOrDefault(key, defaultValue)
}
