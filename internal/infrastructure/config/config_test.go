package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test in an empty directory so no config.toml or .env leaks in
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "bom-engine", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, CompletionManual, cfg.Production.CompletionPolicy)
	assert.Equal(t, RoundingExact, cfg.Production.RoundingPolicy)
	assert.Equal(t, "FEFO", cfg.Production.AllocationStrategy)
	assert.Zero(t, cfg.Production.OverheadPercent)
	assert.Equal(t, 30*time.Second, cfg.Production.LockTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.Empty(t, cfg.Redis.Addr())
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ERP_APP_PORT", "9000")
	t.Setenv("ERP_DATABASE_DRIVER", "sqlite")
	t.Setenv("ERP_DATABASE_PATH", ":memory:")
	t.Setenv("ERP_REDIS_HOST", "cache.local")
	t.Setenv("ERP_PRODUCTION_COMPLETION_POLICY", CompletionAutoOnTarget)
	t.Setenv("ERP_PRODUCTION_OVERHEAD_PERCENT", "12.5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
	assert.Equal(t, CompletionAutoOnTarget, cfg.Production.CompletionPolicy)
	assert.InDelta(t, 12.5, cfg.Production.OverheadPercent, 1e-9)
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	toml := "[app]\nname = \"from-file\"\n\n[production]\nrounding_policy = \"ceil_discrete\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ERP_APP_PORT=7070\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ERP_APP_PORT") })

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, "7070", cfg.App.Port)
	assert.Equal(t, RoundingCeilDiscrete, cfg.Production.RoundingPolicy)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown completion policy", map[string]string{"ERP_PRODUCTION_COMPLETION_POLICY": "eventually"}, "completion_policy"},
		{"unknown rounding policy", map[string]string{"ERP_PRODUCTION_ROUNDING_POLICY": "banker"}, "rounding_policy"},
		{"unknown allocation strategy", map[string]string{"ERP_PRODUCTION_ALLOCATION_STRATEGY": "LIFO"}, "allocation_strategy"},
		{"negative overhead", map[string]string{"ERP_PRODUCTION_OVERHEAD_PERCENT": "-1"}, "overhead_percent"},
		{"unknown driver", map[string]string{"ERP_DATABASE_DRIVER": "mysql"}, "database.driver"},
		{"idle above open", map[string]string{"ERP_DATABASE_MAX_OPEN_CONNS": "2", "ERP_DATABASE_MAX_IDLE_CONNS": "3"}, "max_idle_conns"},
		{"production needs password", map[string]string{"ERP_APP_ENV": "production"}, "database.password"},
		{"bad sampling ratio", map[string]string{"ERP_TELEMETRY_SAMPLING_RATIO": "1.5"}, "sampling_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss word", DBName: "bom", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p%40ss%20word@db:5432/bom?sslmode=require", d.DSN())
}
