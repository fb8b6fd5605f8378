package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears the variables these tests read. godotenv never overrides a
// variable that is already present, so they are unset rather than emptied.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGRO_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("AGRO_CONFIG_PATH", "")
	for _, k := range []string{"BACKENDS", "PORT", "POSTGRES_URL", "MONGO_DB", "YIELD_CHECK_MODE", "DIMENSION_CACHE_TTL", "MEMORY_FLAVOR"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres", "mongodb"}, cfg.Backends)
	assert.Equal(t, "agro_yield", cfg.Mongo.Database)
	assert.Equal(t, "off", cfg.YieldCheck)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, "postgres://postgres:@localhost:5432/agro_yield?sslmode=disable", cfg.PostgresDSN())
}

func TestLoadConfigLayers(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "agro.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
port: "9000"
backends: [memory]
mongo:
  database: from_yaml
redis:
  ttl: 5m
yield_check: warn
`), 0o600))
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("POSTGRES_URL=postgres://u:p@db:5432/x\n"), 0o600))

	t.Setenv("AGRO_CONFIG_PATH", yamlPath)
	t.Setenv("AGRO_ENV_FILE", envPath)
	t.Setenv("PORT", "9100")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port, "env overrides yaml")
	assert.Equal(t, []string{"memory"}, cfg.Backends)
	assert.Equal(t, "from_yaml", cfg.Mongo.Database)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "warn", cfg.YieldCheck)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.PostgresDSN())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backends = []string{"postgres", "cassandra"}
	assert.Error(t, cfg.Validate())

	cfg.Backends = []string{"memory", "memory"}
	assert.Error(t, cfg.Validate())

	cfg.Backends = []string{"memory"}
	cfg.MemoryFlavor = "graph"
	assert.Error(t, cfg.Validate())

	cfg.MemoryFlavor = "document"
	assert.NoError(t, cfg.Validate())
}
