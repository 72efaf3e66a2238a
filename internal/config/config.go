package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// SessionStoreType selects where sessions (and their edit-mode flag) live.
type SessionStoreType string

const (
	SessionStoreDB    SessionStoreType = "db"
	SessionStoreRedis SessionStoreType = "redis"
)

const DefaultConfigPath = "config.yaml"

var (
	ErrUnknownSessionStore = errors.New("unknown session store")
	ErrMissingRedisAddr    = errors.New("REDIS_ADDR is required for the redis session store")
	ErrInvalidSessionTTL   = errors.New("SESSION_TTL must be positive")
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	DBSchema    string `yaml:"db_schema"`

	AllowedOrigins []string      `yaml:"allowed_origins"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	CookieSecure   bool          `yaml:"cookie_secure"`

	SessionStore  SessionStoreType `yaml:"session_store"`
	RedisAddr     string           `yaml:"redis_addr"`
	RedisPassword string           `yaml:"redis_password"`
	RedisDB       int              `yaml:"redis_db"`

	LoginRate  float64 `yaml:"login_rate"`
	LoginBurst int     `yaml:"login_burst"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Only set it when a reverse proxy overwrites those headers.
	TrustProxy bool    `yaml:"trust_proxy"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	BootstrapAdminUsername string `yaml:"bootstrap_admin_username"`
	BootstrapAdminPassword string `yaml:"bootstrap_admin_password"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Port:         "5050",
		SQLitePath:   "intel.db",
		DBSchema:     "intelligence",
		SessionTTL:   time.Hour,
		SessionStore: SessionStoreDB,
		LoginRate:    1,
		LoginBurst:   5,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
//
// Environment variables:
//   - INTEL_CONFIG: YAML file to read instead of path
//   - PORT, DATABASE_URL, SQLITE_PATH, DB_SCHEMA
//   - ALLOWED_ORIGINS: comma separated list of CORS origins
//   - SESSION_TTL (Go duration), COOKIE_SECURE
//   - SESSION_STORE ("db" or "redis"), REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//   - LOGIN_RATE (attempts per second per client), LOGIN_BURST
//   - TRUST_PROXY: honour forwarding headers for the client address
//   - LOG_LEVEL, LOG_FORMAT ("text" or "json")
//   - BOOTSTRAP_ADMIN_USERNAME, BOOTSTRAP_ADMIN_PASSWORD
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env.local")

	if p := strings.TrimSpace(os.Getenv("INTEL_CONFIG")); p != "" {
		path = p
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("PORT", &cfg.Port)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("SQLITE_PATH", &cfg.SQLitePath)
	setString("DB_SCHEMA", &cfg.DBSchema)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("LOG_FORMAT", &cfg.LogFormat)
	setString("BOOTSTRAP_ADMIN_USERNAME", &cfg.BootstrapAdminUsername)
	setString("BOOTSTRAP_ADMIN_PASSWORD", &cfg.BootstrapAdminPassword)

	if v := strings.TrimSpace(os.Getenv("SESSION_STORE")); v != "" {
		cfg.SessionStore = SessionStoreType(strings.ToLower(v))
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = b
	}

	if v := os.Getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRUST_PROXY: %w", err)
		}
		cfg.TrustProxy = b
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	if v := os.Getenv("LOGIN_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LOGIN_RATE: %w", err)
		}
		cfg.LoginRate = f
	}

	if v := os.Getenv("LOGIN_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOGIN_BURST: %w", err)
		}
		cfg.LoginBurst = n
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreDB:
	case SessionStoreRedis:
		if c.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSessionStore, c.SessionStore)
	}

	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}
	return nil
}

// UsesPostgres reports whether DATABASE_URL points at postgres rather than
// falling back to the local sqlite file.
func (c Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}
