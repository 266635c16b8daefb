package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the server reads from the environment. Load it
// once in main, after godotenv has had a chance to populate the process env.
type Config struct {
	Port        string
	Env         string
	DatabaseDSN string
	RedisAddr   string
	RedisPass   string

	JWTSecret   string
	JWTTTLHours int

	// StoreTimeout bounds the durable write attempted by the hub; a write
	// that exceeds it is treated as a store failure.
	StoreTimeout time.Duration
	// PushOnStoreFailure keeps live delivery going when the durable write
	// fails. The delivered message then does not survive a reload.
	PushOnStoreFailure bool
	// PresenceTTL is how long an online flag lives without a refresh.
	PresenceTTL time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func getbool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func Load() Config {
	return Config{
		Port:        getenv("APP_PORT", "8080"),
		Env:         getenv("APP_ENV", "dev"),
		DatabaseDSN: getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=mindcare port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getenv("REDIS_PASSWORD", ""),

		JWTSecret:   getenv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTLHours: getint("JWT_TTL_HOURS", 72),

		StoreTimeout:       getdur("CHAT_STORE_TIMEOUT", 3*time.Second),
		PushOnStoreFailure: getbool("CHAT_PUSH_ON_STORE_FAILURE", true),
		PresenceTTL:        getdur("PRESENCE_TTL", 5*time.Minute),
	}
}
