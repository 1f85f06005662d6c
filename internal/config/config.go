package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Cookie    CookieConfig
	WebSocket WebSocketConfig
	Security  SecurityConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	ConnectRetries uint64
	RetryBase      time.Duration
}

// URL is the CouchDB endpoint with credentials embedded, as kivik expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", d.User, d.Password, d.Host, d.Port)
}

type SessionConfig struct {
	Secret     string
	Expiration time.Duration
	// DenyListCacheSize bounds how many revocations are cached in front of CouchDB.
	DenyListCacheSize int
	// RevocationSweep is how often expired revocations are purged from CouchDB.
	RevocationSweep time.Duration
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnPerUser  int
}

type SecurityConfig struct {
	// APIKey guards the chat routes when non-empty.
	APIKey string
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	godotenv.Load()

	sessionExp, err := time.ParseDuration(getEnv("SESSION_EXPIRATION", "72h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_EXPIRATION: %w", err)
	}

	retryBase, err := time.ParseDuration(getEnv("DB_RETRY_BASE", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_RETRY_BASE: %w", err)
	}

	sameSite, err := parseSameSite(getEnv("COOKIE_SAMESITE", "none"))
	if err != nil {
		return nil, err
	}

	secret := getEnv("SESSION_SECRET", getEnv("SECRET", ""))
	env := getEnv("ENV", "development")
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("SESSION_SECRET is required in production")
		}
		secret = "dev-secret-change-in-production"
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  env,
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5984"),
			User:           getEnv("DB_USER", "admin"),
			Password:       getEnv("DB_PASSWORD", "password"),
			Name:           getEnv("DB_NAME", "ummahbook"),
			ConnectRetries: uint64(getEnvAsInt("DB_CONNECT_RETRIES", 5)),
			RetryBase:      retryBase,
		},
		Session: SessionConfig{
			Secret:            secret,
			Expiration:        sessionExp,
			DenyListCacheSize: getEnvAsInt("SESSION_DENYLIST_CACHE_SIZE", 10000),
			RevocationSweep:   time.Duration(getEnvAsInt("SESSION_REVOCATION_SWEEP_MINUTES", 60)) * time.Minute,
		},
		Cookie: CookieConfig{
			Name:     getEnv("COOKIE_NAME", "token"),
			Path:     getEnv("COOKIE_PATH", "/"),
			Domain:   getEnv("COOKIE_DOMAIN", ""),
			Secure:   getEnvAsBool("COOKIE_SECURE", true),
			SameSite: sameSite,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 65536)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnPerUser:  getEnvAsInt("WS_MAX_CONN_PER_USER", 5),
		},
		Security: SecurityConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,apikey"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(value) {
	case "none":
		return http.SameSiteNoneMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "default", "":
		return http.SameSiteDefaultMode, nil
	}
	return 0, fmt.Errorf("invalid COOKIE_SAMESITE: %q", value)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
