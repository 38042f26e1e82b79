package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Routes   RoutesConfig

	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret         string
	SessionTTLMinutes int
	SessionCookie     string
	CookieSecure      bool
	OAuthBridgeSecret string
	BcryptCost        int
}

// NotificationConfig configures delivery of verification and password reset links.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
	// PublicURL prefixes the links placed in outgoing mail.
	PublicURL string
}

// RoutesConfig holds the static route tables used by the route gate.
// Loaded once at start and never mutated.
type RoutesConfig struct {
	APIAuthPrefix        string
	PublicRoutes         []string
	AuthRoutes           []string
	DefaultLoginRedirect string
	LoginPath            string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "auth-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 10),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("AUTH_JWT_SECRET", "dev-secret"),
			SessionTTLMinutes: getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 60*24*30),
			SessionCookie:     getEnv("AUTH_SESSION_COOKIE", "session_token"),
			CookieSecure:      getEnvAsBool("AUTH_COOKIE_SECURE", false),
			OAuthBridgeSecret: os.Getenv("AUTH_OAUTH_BRIDGE_SECRET"),
			BcryptCost:        getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Routes: RoutesConfig{
			APIAuthPrefix:        getEnv("ROUTES_API_AUTH_PREFIX", "/api/auth"),
			PublicRoutes:         getEnvAsList("ROUTES_PUBLIC", []string{"/", "/auth/new-verification"}),
			AuthRoutes:           getEnvAsList("ROUTES_AUTH", []string{"/auth/login", "/auth/register", "/auth/error", "/auth/reset", "/auth/new-password"}),
			DefaultLoginRedirect: getEnv("ROUTES_DEFAULT_LOGIN_REDIRECT", "/settings"),
			LoginPath:            getEnv("ROUTES_LOGIN_PATH", "/auth/login"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			PublicURL:  strings.TrimRight(getEnv("APP_PUBLIC_URL", "http://localhost:8080"), "/"),
		},
	}

	if err := cfg.Routes.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns the lifetime of an issued session token.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// Validate rejects route tables that would leave the gate without a login target
// or bounce a request between the login page and the default redirect.
func (r RoutesConfig) Validate() error {
	if r.APIAuthPrefix == "" || !strings.HasPrefix(r.APIAuthPrefix, "/") {
		return fmt.Errorf("invalid ROUTES_API_AUTH_PREFIX %q", r.APIAuthPrefix)
	}
	if !strings.HasPrefix(r.LoginPath, "/") {
		return fmt.Errorf("invalid ROUTES_LOGIN_PATH %q", r.LoginPath)
	}
	if !strings.HasPrefix(r.DefaultLoginRedirect, "/") {
		return fmt.Errorf("invalid ROUTES_DEFAULT_LOGIN_REDIRECT %q", r.DefaultLoginRedirect)
	}
	// Anonymous visitors are sent to the login path and signed-in users away from
	// auth pages, so either misclassification redirects forever.
	if !r.isPublic(r.LoginPath) && !r.isAuth(r.LoginPath) {
		return fmt.Errorf("ROUTES_LOGIN_PATH %q must be listed in ROUTES_AUTH or ROUTES_PUBLIC", r.LoginPath)
	}
	if r.isAuth(r.DefaultLoginRedirect) {
		return fmt.Errorf("ROUTES_DEFAULT_LOGIN_REDIRECT %q must not be an auth route", r.DefaultLoginRedirect)
	}
	return nil
}

// isPublic and isAuth follow the gate's precedence: API auth prefix, then public, then auth.
func (r RoutesConfig) isPublic(path string) bool {
	return !strings.HasPrefix(path, r.APIAuthPrefix) && slices.Contains(r.PublicRoutes, path)
}

func (r RoutesConfig) isAuth(path string) bool {
	return !strings.HasPrefix(path, r.APIAuthPrefix) &&
		!slices.Contains(r.PublicRoutes, path) &&
		slices.Contains(r.AuthRoutes, path)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
