package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var configKeys = []string{
	"APP_ENV", "ORDER_STORE", "LOG_LEVEL", "HTTP_ADDR", "PUBLIC_BASE_URL",
	"ORDERS_TABLE", "GATEWAY_TIMEOUT", "GATEWAY_RETRIES", "GATEWAY_CATEGORY_CODE",
	"PENDING_MARKER_TTL",
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, configKeys...)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, StoreMemory, cfg.StoreBackend())
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 1, cfg.Gateway.Retries)
	assert.Equal(t, time.Hour, cfg.PendingMarkerTTL)
	assert.Equal(t, "http://localhost:8080/payment/status", cfg.ReturnURL())
	assert.Equal(t, "http://localhost:8080/api/payment/callback", cfg.CallbackURL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ORDERS_TABLE", "prod-orders")
	t.Setenv("GATEWAY_RETRIES", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StoreDynamoDB, cfg.StoreBackend())
	assert.Equal(t, "prod-orders", cfg.Tables.Orders)
	assert.Equal(t, 3, cfg.Gateway.Retries)
}

func TestLoad_ExplicitStoreOverride(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ORDER_STORE", "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreBackend())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("ORDER_STORE", "mongo")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	unsetEnv(t, configKeys...)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "env: staging\ngateway:\n  category_code: cat-01\n  timeout: 5s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "cat-01", cfg.Gateway.CategoryCode)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
}
