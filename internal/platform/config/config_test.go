package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Environment overrides defaults", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", " REST ")
		t.Setenv("SUCCESS_NOTICE_TTL", "5s")
		t.Setenv("SERVER_PORT", "9090")

		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, BackendREST, cfg.StoreBackend)
		assert.Equal(t, 5*time.Second, cfg.SuccessNoticeTTL)
		assert.Equal(t, "9090", cfg.ServerPort)
	})

	t.Run("Reads pos.env", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pos.env"), []byte("TERMINAL_ID=caja-7\n"), 0o600))

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "caja-7", cfg.TerminalID)
	})
}

func validConfig() Config {
	return Config{
		StoreBackend:     BackendPostgres,
		DBDriver:         "pgx",
		DatabaseDSN:      "postgres://localhost/pos",
		SuccessNoticeTTL: 3 * time.Second,
		Timezone:         "America/Santiago",
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"unknown backend": func(c *Config) { c.StoreBackend = "sqlite" },
		"missing dsn":     func(c *Config) { c.DatabaseDSN = "" },
		"bad driver":      func(c *Config) { c.DBDriver = "mysql" },
		"rest without key": func(c *Config) {
			c.StoreBackend = BackendREST
			c.SupabaseURL = "https://x.supabase.co"
		},
		"zero notice ttl": func(c *Config) { c.SuccessNoticeTTL = 0 },
		"bad timezone":    func(c *Config) { c.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_AllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, Config{}.AllowedOrigins())
	assert.Equal(t, []string{"http://a", "http://b"}, Config{CORSAllowedOrigins: " http://a, ,http://b"}.AllowedOrigins())
}

func TestConfig_Location(t *testing.T) {
	assert.Equal(t, "America/Santiago", Config{Timezone: "America/Santiago"}.Location().String())
	assert.Equal(t, time.Local, Config{Timezone: "Nowhere/None"}.Location())
}
