package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 72, cfg.JWTTTLHours)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.True(t, cfg.PushOnStoreFailure)
	assert.Equal(t, 5*time.Minute, cfg.PresenceTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("CHAT_STORE_TIMEOUT", "500ms")
	t.Setenv("CHAT_PUSH_ON_STORE_FAILURE", "false")
	t.Setenv("JWT_TTL_HOURS", "24")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.StoreTimeout)
	assert.False(t, cfg.PushOnStoreFailure)
	assert.Equal(t, 24, cfg.JWTTTLHours)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CHAT_STORE_TIMEOUT", "soon")
	t.Setenv("JWT_TTL_HOURS", "many")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 72, cfg.JWTTTLHours)
}
