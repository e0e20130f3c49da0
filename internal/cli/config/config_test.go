package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jsonsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err) // explicit path that does not exist is an error

	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8980, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "none", cfg.Server.Auth.Mode)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, "memory", cfg.Server.RateLimit.Backend)
	assert.Equal(t, 120, cfg.Server.RateLimit.Requests)
	assert.False(t, cfg.Server.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Server.Cache.TTL)
	assert.Equal(t, "localhost:6379", cfg.Server.Redis.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
policy:
  queries:
    - SELECT
  items:
    - "*"
  tables:
    - users: [id, name]
  columns:
    id: integer
    name: string
  connections:
    - WHERE
server:
  port: 9000
  auth:
    mode: token
    jwt_secret: sekrit
  rate_limit:
    enabled: true
    backend: memory
    requests: 10
    window: 30s
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "token", cfg.Server.Auth.Mode)
	assert.Equal(t, "sekrit", cfg.Server.Auth.JWTSecret)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.Server.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, []string{"SELECT"}, cfg.Policy.Queries)
	assert.Equal(t, "integer", cfg.Policy.Columns["id"])
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad port",
			yaml:    "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
		{
			name:    "token mode without secret",
			yaml:    "server:\n  auth:\n    mode: token\n",
			wantErr: "jwt_secret",
		},
		{
			name:    "key mode without keys",
			yaml:    "server:\n  auth:\n    mode: key\n",
			wantErr: "api_keys",
		},
		{
			name:    "unknown auth mode",
			yaml:    "server:\n  auth:\n    mode: basic\n",
			wantErr: "server.auth.mode",
		},
		{
			name:    "unknown rate limit backend",
			yaml:    "server:\n  rate_limit:\n    backend: memcached\n",
			wantErr: "rate_limit.backend",
		},
		{
			name:    "unknown cache backend",
			yaml:    "server:\n  cache:\n    backend: disk\n",
			wantErr: "cache.backend",
		},
		{
			name:    "unknown logging format",
			yaml:    "logging:\n  format: xml\n",
			wantErr: "logging.format",
		},
		{
			name:    "bad policy column kind",
			yaml:    "policy:\n  columns:\n    id: decimal\n",
			wantErr: "invalid policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
