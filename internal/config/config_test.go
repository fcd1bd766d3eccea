package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)
	assert.Equal(t, 5, cfg.Database.ConnectAttempts)
	assert.Equal(t, 0, cfg.Bulk.ChunkSize)
	assert.Equal(t, "stac.items", cfg.Tables.Items)
	assert.Equal(t, "stac.collections", cfg.Tables.Collections)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
database:
  writer_url: postgres://writer/stac
  reader_url: postgres://replica/stac
log:
  level: debug
  format: console
server:
  port: 9090
  base_url: https://stac.example.com/
bulk:
  chunk_size: 500
  chunks_per_second: 2.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://writer/stac", cfg.Database.WriterURL)
	assert.Equal(t, "postgres://replica/stac", cfg.Database.ReaderURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://stac.example.com/", cfg.Server.BaseURL)
	assert.Equal(t, 500, cfg.Bulk.ChunkSize)
	assert.Equal(t, 2.5, cfg.Bulk.ChunksPerSecond)
	// Defaults still apply for unset values
	assert.Equal(t, "stac.items", cfg.Tables.Items)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
database:
  writer_url: postgres://file/stac
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("STAC_DATABASE_WRITER_URL", "postgres://env/stac")
	t.Setenv("STAC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres://env/stac", cfg.Database.WriterURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("STAC_SERVER_PORT", "3000")
	t.Setenv("STAC_BULK_CHUNK_SIZE", "250")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Bulk.ChunkSize)
}

func TestReaderOrWriterURL(t *testing.T) {
	d := DatabaseConfig{WriterURL: "postgres://writer"}
	assert.Equal(t, "postgres://writer", d.ReaderOrWriterURL())

	d.ReaderURL = "postgres://replica"
	assert.Equal(t, "postgres://replica", d.ReaderOrWriterURL())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{WriterURL: "postgres://localhost/stac"},
		Server:   ServerConfig{Port: 8080},
	}
}

func TestValidateServe_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidate_MissingWriterURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database.WriterURL = ""

	for _, mode := range []string{"serve", "migrate", "load"} {
		err := cfg.Validate(mode)
		require.Error(t, err, mode)
		assert.Contains(t, err.Error(), "database.writer_url is required")
	}
}

func TestValidate_NegativeChunkSize(t *testing.T) {
	cfg := validConfig()
	cfg.Bulk.ChunkSize = -5

	err := cfg.Validate("load")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bulk.chunk_size")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validConfig().Validate("ingest")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_NegativeChunkRate(t *testing.T) {
	cfg := validConfig()
	cfg.Bulk.ChunksPerSecond = -1

	err := cfg.Validate("load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk.chunks_per_second")
}

func TestRedacted(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{
		WriterURL: "postgres://stac:s3cret@db:5432/stac",
	}}

	out := cfg.Redacted()
	assert.Equal(t, "postgres://stac:xxxxx@db:5432/stac", out.Database.WriterURL)
	assert.Empty(t, out.Database.ReaderURL)
	assert.Equal(t, "postgres://stac:s3cret@db:5432/stac", cfg.Database.WriterURL, "original untouched")
}
