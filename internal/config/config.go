// Package config loads runtime settings from the environment (optionally
// seeded from a .env file) and holds the chat core's tuning constants.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Database drivers understood by the storage layer.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Backplanes understood by the broker.
const (
	BackplaneLocal = "local"
	BackplaneRedis = "redis"
)

// Config is the runtime configuration of the server and the admin CLI.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	DBDriver string
	DBHost   string
	DBPort   string
	DBUser   string
	DBPass   string
	DBName   string
	DBPath   string // sqlite file or DSN

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret        string
	TelegramBotToken string

	Backplane      string
	MaxRoomMembers int
	NotifyDelay    time.Duration
	AllowedOrigin  string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults and
// validating the result.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		AppEnv:           getenv("APP_ENV"),
		LogLevel:         getenv("LOG_LEVEL"),
		HTTPAddr:         getenv("HTTP_ADDR"),
		DBDriver:         getenv("DB_DRIVER"),
		DBHost:           getenv("DB_HOST"),
		DBPort:           getenv("DB_PORT"),
		DBUser:           getenv("DB_USER"),
		DBPass:           getenv("DB_PASSWORD"),
		DBName:           getenv("DB_NAME"),
		DBPath:           getenv("DB_PATH"),
		RedisAddr:        getenv("REDIS_ADDR"),
		RedisPassword:    getenv("REDIS_PASSWORD"),
		KeyPrefix:        getenv("REDIS_KEY_PREFIX"),
		JWTSecret:        getenv("JWT_SECRET"),
		TelegramBotToken: getenv("TELEGRAM_BOT_TOKEN"),
		Backplane:        getenv("CHAT_BACKPLANE"),
		AllowedOrigin:    getenv("CORS_ALLOWED_ORIGIN"),
		MaxRoomMembers:   DefaultMaxRoomMembers,
		NotifyDelay:      DefaultNotifyDelay,
	}

	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverPostgres
	}
	if cfg.DBHost == "" {
		cfg.DBHost = "localhost"
	}
	if cfg.DBPort == "" {
		cfg.DBPort = "5432"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "studylocal.db"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultRedisKeyScope
	}
	if cfg.Backplane == "" {
		cfg.Backplane = BackplaneLocal
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "http://localhost:3000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	if v := getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		cfg.RedisDB = db
	}
	if v := getenv("CHAT_MAX_ROOM_MEMBERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("CHAT_MAX_ROOM_MEMBERS must be a positive integer, got %q", v)
		}
		cfg.MaxRoomMembers = n
	}
	if v := getenv("NOTIFY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("NOTIFY_DELAY: %w", err)
		}
		cfg.NotifyDelay = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations that would fail at runtime.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("environment variable JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBUser == "" || c.DBName == "" {
			return errors.New("DB_USER and DB_NAME must be set for the postgres driver")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.Backplane {
	case BackplaneLocal:
	case BackplaneRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR must be set for the redis backplane")
		}
	default:
		return fmt.Errorf("unknown CHAT_BACKPLANE %q", c.Backplane)
	}
	return nil
}

// PostgresDSN returns the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort)
}

// RedisEnabled reports whether a redis server is configured. Presence keys,
// the job queue and the redis backplane all need one.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
