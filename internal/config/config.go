package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the relay configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Session   SessionConfig
	Redis     RedisConfig
	Board     BoardConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	WebDir       string
	// Docs serves the OpenAPI document and docs UI.
	Docs bool
}

// BackendConfig points at the backend user directory.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// SessionConfig holds the identity provider session token settings.
type SessionConfig struct {
	Secret string //nolint:gosec // G117: session signing secret config
	Issuer string
}

// RedisConfig holds Redis connection settings. An empty Addr disables board
// events.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

type BoardConfig struct {
	ID string
}

// RateLimitConfig bounds requests per client IP on the auth routes.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the relay configuration from environment variables.
// Defaults are safe for local development only. The session secret has no
// default and must be set explicitly.
func Load() (*Config, error) {
	readTimeout, err := getEnvDuration("TEAMBOARD_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("TEAMBOARD_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	backendTimeout, err := getEnvDuration("TEAMBOARD_BACKEND_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("TEAMBOARD_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvFloat("TEAMBOARD_AUTH_RATE", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("TEAMBOARD_AUTH_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	docs, err := getEnvBool("TEAMBOARD_SERVER_DOCS", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("TEAMBOARD_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("TEAMBOARD_CORS_ORIGINS", []string{"http://localhost:5173"}),
			WebDir:       getEnv("TEAMBOARD_WEB_DIR", ""),
			Docs:         docs,
		},
		Backend: BackendConfig{
			URL:     getEnv("TEAMBOARD_BACKEND_URL", "http://localhost:3000"),
			Timeout: backendTimeout,
		},
		Session: SessionConfig{
			Secret: getEnv("TEAMBOARD_SESSION_SECRET", ""),
			Issuer: getEnv("TEAMBOARD_SESSION_ISSUER", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("TEAMBOARD_REDIS_ADDR", ""),
			Password: getEnv("TEAMBOARD_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Board: BoardConfig{
			ID: getEnv("TEAMBOARD_BOARD_ID", "team"),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Log: LogConfig{
			Level:  getEnv("TEAMBOARD_LOG_LEVEL", "info"),
			Format: getEnv("TEAMBOARD_LOG_FORMAT", "text"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if err := validateSecret("TEAMBOARD_SESSION_SECRET", c.Session.Secret); err != nil {
		return err
	}

	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TEAMBOARD_BACKEND_URL must be an http(s) URL, got %q", c.Backend.URL)
	}
	if u.Scheme == "http" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Warn().Str("url", c.Backend.URL).Msg("TEAMBOARD_BACKEND_URL is plain http; session tokens travel unencrypted")
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("TEAMBOARD_BACKEND_TIMEOUT must be positive, got %s", c.Backend.Timeout)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TEAMBOARD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TEAMBOARD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("TEAMBOARD_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	if strings.TrimSpace(c.Board.ID) == "" {
		return errors.New("TEAMBOARD_BOARD_ID must not be blank")
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("TEAMBOARD_AUTH_RATE must be positive, got %g", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("TEAMBOARD_AUTH_BURST must be >= 1, got %d", c.RateLimit.Burst)
	}

	return c.Log.validate("TEAMBOARD")
}

// DirectoryConfig configures the reference user directory (cmd/directory).
type DirectoryConfig struct {
	Addr     string
	Store    string
	Database DatabaseConfig
	Session  SessionConfig
	Log      LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// LoadDirectory reads the directory configuration. The session secret falls
// back to TEAMBOARD_SESSION_SECRET so both processes can share one env file.
func LoadDirectory() (*DirectoryConfig, error) {
	dbPort, err := getEnvInt("DIRECTORY_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDirectory: %w", err)
	}

	dbMaxConns, err := getEnvInt("DIRECTORY_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDirectory: %w", err)
	}

	cfg := &DirectoryConfig{
		Addr:  getEnv("DIRECTORY_ADDR", ":3000"),
		Store: strings.ToLower(getEnv("DIRECTORY_STORE", StoreMemory)),
		Database: DatabaseConfig{
			Host:     getEnv("DIRECTORY_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DIRECTORY_DB_USER", "teamboard"),
			Password: getEnv("DIRECTORY_DB_PASSWORD", ""),
			DBName:   getEnv("DIRECTORY_DB_NAME", "teamboard_dev"),
			SSLMode:  getEnv("DIRECTORY_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Session: SessionConfig{
			Secret: getEnv("DIRECTORY_SESSION_SECRET", os.Getenv("TEAMBOARD_SESSION_SECRET")),
			Issuer: getEnv("DIRECTORY_SESSION_ISSUER", os.Getenv("TEAMBOARD_SESSION_ISSUER")),
		},
		Log: LogConfig{
			Level:  getEnv("DIRECTORY_LOG_LEVEL", "info"),
			Format: getEnv("DIRECTORY_LOG_FORMAT", "text"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.LoadDirectory: %w", err)
	}

	return cfg, nil
}

func (c *DirectoryConfig) validate() error {
	if err := validateSecret("DIRECTORY_SESSION_SECRET", c.Session.Secret); err != nil {
		return err
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.SSLMode == "disable" {
			log.Warn().Msg("DIRECTORY_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("DIRECTORY_DB_PORT must be 1-65535, got %d", c.Database.Port)
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("DIRECTORY_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
		}
	default:
		return fmt.Errorf("DIRECTORY_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}

	return c.Log.validate("DIRECTORY")
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c LogConfig) validate(prefix string) error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%s_LOG_LEVEL: %w", prefix, err)
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("%s_LOG_FORMAT must be text or json, got %q", prefix, c.Format)
	}
	return nil
}

func validateSecret(key, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s is required", key)
	}
	if len(secret) < 32 {
		return fmt.Errorf("%s must be at least 32 characters", key)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
