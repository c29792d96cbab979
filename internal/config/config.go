package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Checkin  CheckinConfig
	Event    EventConfig
	Email    EmailConfig
	WhatsApp WhatsAppConfig
	Upload   UploadConfig
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
	MigrationsDir  string
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
	Level  string
	Format string
}

// CheckinConfig defines the token signing secret.
type CheckinConfig struct {
	Secret string
}

// EventConfig describes the event the guest list belongs to.
type EventConfig struct {
	Name       string
	AppBaseURL string
}

// EmailConfig configures the invite email provider.
type EmailConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
	ReplyTo   string
}

// WhatsAppConfig configures the outbound messaging provider.
type WhatsAppConfig struct {
	BaseURL            string
	APIKey             string
	DefaultCountryCode string
}

// UploadConfig configures the QR image hosting provider.
type UploadConfig struct {
	BaseURL     string
	Token       string
	CacheTTLSec int
}

// DefaultCheckinSecret is the development-only fallback signing secret.
const DefaultCheckinSecret = "dev-secret"

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// Present-but-empty REDIS_ADDR disables redis and the QR upload cache.
	redisAddr := "127.0.0.1:6379"
	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		redisAddr = addr
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "guestlist-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Checkin: CheckinConfig{
			Secret: getEnv("CHECKIN_SECRET", DefaultCheckinSecret),
		},
		Event: EventConfig{
			Name:       getEnv("EVENT_NAME", "Guest Event"),
			AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
		},
		Email: EmailConfig{
			APIKey:    os.Getenv("MAILERSEND_API_KEY"),
			FromName:  getEnv("EMAIL_FROM_NAME", "Invitations"),
			FromEmail: getEnv("EMAIL_FROM", "no-reply@example.com"),
			ReplyTo:   os.Getenv("EMAIL_REPLY_TO"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:            getEnv("WASENDER_BASE_URL", "https://wasenderapi.com"),
			APIKey:             os.Getenv("WASENDER_API_KEY"),
			DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "244"),
		},
		Upload: UploadConfig{
			BaseURL:     getEnv("UPLOAD_BASE_URL", "https://api.uploadthing.com"),
			Token:       os.Getenv("UPLOADTHING_TOKEN"),
			CacheTTLSec: getEnvAsInt("QR_URL_CACHE_TTL_SECONDS", 86400),
		},
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

// CacheTTL returns the QR URL cache TTL duration.
func (u UploadConfig) CacheTTL() time.Duration {
	if u.CacheTTLSec <= 0 {
		return 0
	}
	return time.Duration(u.CacheTTLSec) * time.Second
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
