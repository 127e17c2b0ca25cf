package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("ADDR", "")
	t.Setenv("FRONTEND_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []byte("test-secret"), cfg.JWTSecret)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
}

func TestLoadConfigInvalidSMTPPort(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SMTP_PORT", "not-a-port")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/voat")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("ADDR", ":9000")
	t.Setenv("FRONTEND_URL", "https://voat.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/voat", cfg.DatabaseURL)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "https://voat.example.com", cfg.FrontendURL)
}
