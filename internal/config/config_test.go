package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var cfg LoanService
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "http://localhost:8081", cfg.BookServiceURL)
	assert.Equal(t, "http://localhost:8083", cfg.MemberServiceURL)
	assert.Equal(t, 5*time.Second, cfg.ClientTimeout)
	assert.NotEmpty(t, cfg.DatabaseURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOOK_SERVICE_URL", "http://bookd:8081")
	t.Setenv("CLIENT_TIMEOUT", "250ms")

	var cfg LoanService
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://bookd:8081", cfg.BookServiceURL)
	assert.Equal(t, 250*time.Millisecond, cfg.ClientTimeout)
}

func TestGatewayDefaults(t *testing.T) {
	var cfg Gateway
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 50.0, cfg.WriteRatePerSec)
	assert.Equal(t, 100, cfg.WriteBurst)
}
