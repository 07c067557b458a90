package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_GetDSN_Postgres(t *testing.T) {
	c := &DatabaseConfig{Type: "postgres", Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.GetDSN())
}

func TestDatabaseConfig_GetDSN_MySQL(t *testing.T) {
	c := &DatabaseConfig{Type: "mysql", Host: "h", Port: 3306, User: "u", Password: "p", DBName: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", c.GetDSN())
}

func TestDatabaseConfig_GetDSN_SQLite(t *testing.T) {
	c := &DatabaseConfig{Type: "sqlite", DBName: "/tmp/app.sqlite"}
	assert.Equal(t, "/tmp/app.sqlite", c.GetDSN())
}

func TestDatabaseConfig_GetDSN_Unknown(t *testing.T) {
	c := &DatabaseConfig{Type: "unknown"}
	assert.Equal(t, "", c.GetDSN())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apiserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_EnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_CF_PORT", "9090")
	t.Setenv("TEST_CF_DB_PASSWORD", "s3cret")

	path := writeConfig(t, `
port: ${TEST_CF_PORT:8080}
database:
  type: "${TEST_CF_DB_TYPE:sqlite}"
  dbname: "app.db"
  password: "${TEST_CF_DB_PASSWORD:}"
jwt:
  secret_key: "k"
  duration: "12h"
invite:
  default_ttl: "24h"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Set env wins, unset env falls back to the default
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Duration)
	assert.Equal(t, 24*time.Hour, cfg.Invite.DefaultTTL)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  type: "sqlite"
  dbname: "app.db"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.RateLimit.Points)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30, cfg.RateLimit.TokenPoints)
	assert.Equal(t, 5, cfg.RateLimit.AcceptPoints)
	assert.Equal(t, 7*24*time.Hour, cfg.Invite.DefaultTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.Invite.MaxTTL)
	assert.Equal(t, "condoflow", cfg.Metrics.Namespace)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "port: [not a port")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
