package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads. godotenv never overrides a
// variable that exists, even when empty, so they are removed outright.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_URL", "DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT",
		"REALTIME_CHANNEL", "JWT_SECRET", "ADMIN_USERNAME", "ADMIN_PASSWORD",
		"STORE_NAME", "STORE_ADDRESS", "STORE_PHONE", "OVERDUE_CRON", "ARCHIVE_CRON",
		"MONGODB_URI", "MONGODB_DB_NAME", "DEBUG",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.False(t, cfg.UsesDatabase())
	assert.Equal(t, "pos_changes", cfg.Database.RealtimeChannel)
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.Equal(t, "Udhar POS", cfg.Store.Name)
	assert.Equal(t, "0 9 * * *", cfg.Scheduler.OverdueCron)
	assert.Equal(t, "udhar_pos", cfg.MongoDB.DBName)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	content := "PORT=8080\nDB_HOST=localhost\nDB_USER=pos\nDB_NAME=shop\nJWT_SECRET=s3cret\nSTORE_NAME=Hafiz Store\nDEBUG=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.UsesDatabase())
	assert.True(t, cfg.Debug)
	assert.Equal(t, "Hafiz Store", cfg.Store.Name)
	assert.Equal(t, "host=localhost user=pos password= dbname=shop port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestDSNPrefersURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{URL: "postgres://pos@db/shop", Host: "ignored"}}
	assert.Equal(t, "postgres://pos@db/shop", cfg.DSN())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "3000"},
			Database:  DatabaseConfig{RealtimeChannel: "pos_changes"},
			Scheduler: SchedulerConfig{OverdueCron: "0 9 * * *", ArchiveCron: "30 23 * * *", Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory mode without secret", func(c *Config) {}, false},
		{"database without secret", func(c *Config) { c.Database.Host = "db" }, true},
		{"database with secret", func(c *Config) { c.Database.Host = "db"; c.Auth.JWTSecret = "x" }, false},
		{"empty port", func(c *Config) { c.Server.Port = "" }, true},
		{"empty channel", func(c *Config) { c.Database.RealtimeChannel = "" }, true},
		{"empty cron", func(c *Config) { c.Scheduler.ArchiveCron = "" }, true},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}
