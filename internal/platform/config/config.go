package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process configuration. Everything comes from the
// environment so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr        string
	PostgresURL string
	Redis       RedisConfig
	Session     SessionConfig
	Checkout    CheckoutConfig
	Notify      NotifyConfig
	Admin       AdminConfig
}

// AdminConfig holds the back-office credentials and token settings. The
// password arrives pre-hashed so plaintext never lives in the environment.
type AdminConfig struct {
	Username     string
	PasswordHash string
	JWTKey       string
	TokenTTL     time.Duration
}

// RedisConfig holds connection tuning for the session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SessionConfig governs the session lifecycle enforced by the guard.
type SessionConfig struct {
	InactivityTimeout time.Duration
	AbsoluteMaxAge    time.Duration
	TTL               time.Duration
	CookieName        string
}

// CheckoutConfig holds checkout policy: the field encryption key and the
// email domain suffixes allowed to place orders.
type CheckoutConfig struct {
	FieldKey       string
	AllowedDomains []string
	TxTimeout      time.Duration
}

// NotifyConfig configures best-effort order confirmation dispatch. Empty
// brokers means confirmations are only logged.
type NotifyConfig struct {
	Brokers string
	Topic   string
	Timeout time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults for everything except secrets.
func FromEnv() Config {
	return Config{
		Addr:        envString("AEROSTORE_ADDR", ":8080"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Session: SessionConfig{
			InactivityTimeout: envDuration("SESSION_INACTIVITY_TIMEOUT", 30*time.Minute),
			AbsoluteMaxAge:    envDuration("SESSION_ABSOLUTE_MAX_AGE", 12*time.Hour),
			TTL:               envDuration("SESSION_TTL", 24*time.Hour),
			CookieName:        envString("SESSION_COOKIE_NAME", "aerostore_sid"),
		},
		Checkout: CheckoutConfig{
			FieldKey:       os.Getenv("DATA_ENC_KEY"),
			AllowedDomains: envList("CHECKOUT_ALLOWED_DOMAINS", []string{".mil", ".gov"}),
			TxTimeout:      envDuration("CHECKOUT_TX_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   envString("NOTIFY_TOPIC", "order.confirmations"),
			Timeout: envDuration("NOTIFY_TIMEOUT", 2*time.Second),
		},
		Admin: AdminConfig{
			Username:     envString("ADMIN_USERNAME", "admin"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTKey:       envString("ADMIN_JWT_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:     envDuration("ADMIN_TOKEN_TTL", 8*time.Hour),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
