package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "22O", cfg.Containers.Prefix)
	assert.Equal(t, "SOB", cfg.Containers.SurplusPrefix)
	assert.Equal(t, 8, cfg.Containers.Digits)
	assert.Equal(t, 3, cfg.Containers.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Containers.RetryBackoff)
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crossdock.yaml")
	yaml := `
database:
  driver: postgres
messaging:
  backend: mqtt
containers:
  prefix: "XD"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "mqtt", cfg.Messaging.Backend)
	assert.Equal(t, "XD", cfg.Containers.Prefix)
	// untouched fields keep defaults
	assert.Equal(t, 8090, cfg.Web.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CROSSDOCK_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CROSSDOCK_HTTP_PORT", "9999")
	t.Setenv("CROSSDOCK_POSTGRES_DSN", "postgres://x@y/z")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Messaging.Kafka.Brokers)
	assert.Equal(t, 9999, cfg.Web.Port)
	assert.Equal(t, "postgres://x@y/z", cfg.Database.Postgres.DSN)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CROSSDOCK_TEST_DOTENV=hello\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("CROSSDOCK_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "hello", os.Getenv("CROSSDOCK_TEST_DOTENV"))

	// missing files are ignored
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Defaults()
	cfg.StationID = "dock-7"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dock-7", got.StationID)
}
