package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp isolates Load from config.toml and .env files in the package directory.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("WMS_JWT_SECRET", "dev-secret")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "wms-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "wms", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.False(t, cfg.Stock.AllowNegative)
		assert.Equal(t, 5, cfg.Stock.IDRetryAttempts)
		assert.Equal(t, int32(4), cfg.UOM.InventoryPrecision)
		assert.Equal(t, int32(1), cfg.UOM.RejectPrecision)
		assert.True(t, cfg.Idempotency.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.Equal(t, 12*time.Hour, cfg.JWT.AccessTokenExpiration)
		assert.False(t, cfg.Storage.Enabled)
		assert.Equal(t, "wms-backend", cfg.Telemetry.ServiceName)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.True(t, cfg.Telemetry.LogsEnabled)
	})

	t.Run("loads values from environment variables with WMS prefix", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("WMS_JWT_SECRET", "dev-secret")
		t.Setenv("WMS_APP_PORT", "9000")
		t.Setenv("WMS_DATABASE_HOST", "testdb.local")
		t.Setenv("WMS_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("WMS_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("WMS_STOCK_ALLOW_NEGATIVE", "true")
		t.Setenv("WMS_UOM_REJECT_PRECISION", "0")
		t.Setenv("WMS_UOM_INVENTORY_PRECISION", "-1")
		t.Setenv("WMS_IDEMPOTENCY_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.True(t, cfg.Stock.AllowNegative)
		assert.Equal(t, int32(0), cfg.UOM.RejectPrecision)
		assert.Equal(t, int32(-1), cfg.UOM.InventoryPrecision)
		assert.False(t, cfg.Idempotency.Enabled)
	})

	t.Run("reads config.toml and .env", func(t *testing.T) {
		dir := chdirTemp(t)
		toml := "[app]\nname = \"depot\"\n\n[stock]\nid_retry_attempts = 9\n\n[storage]\nenabled = true\nbucket = \"docs\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WMS_JWT_SECRET=from-dotenv\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("WMS_JWT_SECRET") })

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "depot", cfg.App.Name)
		assert.Equal(t, 9, cfg.Stock.IDRetryAttempts)
		assert.True(t, cfg.Storage.Enabled)
		assert.Equal(t, "docs", cfg.Storage.Bucket)
		assert.Equal(t, "from-dotenv", cfg.JWT.Secret)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{JWT: JWTConfig{Secret: "dev-secret"}}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = 30 }, "max_idle_conns"},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, "jwt.secret is required"},
		{"storage without bucket", func(c *Config) { c.Storage.Enabled = true }, "storage.bucket"},
		{"sampling ratio", func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, "sampling_ratio"},
		{"production short secret", func(c *Config) {
			c.App.Env = "production"
		}, "at least 32 characters"},
		{"production wildcard cors", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = "0123456789abcdef0123456789abcdef"
			c.Database.Password = "pw"
			c.Database.SSLMode = "require"
			c.HTTP.CORSAllowOrigins = []string{"*"}
		}, "cors_allow_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "wms",
		Password: "p@ss/word",
		DBName:   "stock",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://wms:p%40ss%2Fword@db:5432/stock?sslmode=disable", cfg.DSN())
}
