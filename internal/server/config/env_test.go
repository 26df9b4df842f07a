package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func Test_parseEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, mapLookup(map[string]string{
		"DEVAUTH_HTTP_ADDR":          ":7000",
		"DEVAUTH_DATABASE_DSN":       "postgres://env",
		"DEVAUTH_ACCESS_TOKEN_TTL":   "900000",
		"DEVAUTH_REFRESH_TOKEN_TTL":  "72h",
		"DEVAUTH_SWEEP_INTERVAL":     "30m",
		"DEVAUTH_MAX_REFRESH_TOKENS": "2",
		"DEVAUTH_BCRYPT_COST":        "11",
		"DEVAUTH_CORS_ORIGINS":       "https://a.example, https://b.example,",
		"DEVAUTH_LOG_LEVEL":          "   ",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 72*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 2, cfg.MaxRefreshTokensPerPrincipal)
	assert.Equal(t, 11, cfg.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel, "blank values are ignored")
}

func Test_parseEnv_Invalid(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, parseEnv(cfg, mapLookup(map[string]string{"DEVAUTH_SWEEP_INTERVAL": "daily"})))
	assert.Error(t, parseEnv(cfg, mapLookup(map[string]string{"DEVAUTH_MAX_REFRESH_TOKENS": "five"})))
}

func Test_loadDotEnv_FromFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DEVAUTH_TEST_DOTENV_VALUE=loaded\n"), 0o600))
	t.Setenv("DEVAUTH_TEST_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("DEVAUTH_TEST_DOTENV_VALUE"))

	require.NoError(t, loadDotEnv([]string{"-env", path}))
	assert.Equal(t, "loaded", os.Getenv("DEVAUTH_TEST_DOTENV_VALUE"))
}

func Test_loadDotEnv_MissingFlagFileFails(t *testing.T) {
	require.Error(t, loadDotEnv([]string{"-env", filepath.Join(t.TempDir(), "nope.env")}))
}
