package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
database:
  host: localhost
  user: labelcore
  dbname: labelcore
redis:
  url: redis://localhost:6379/0
`

func TestLoadAppliesDefaults(t *testing.T) {
	t.Helper()

	cfg, err := config.Load(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "distribution_history", cfg.Elasticsearch.Index)
	assert.Equal(t, 4, cfg.Orchestrator.FanOutLimit)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.PublishTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Worker.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Worker.FetchTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoadFullConfig(t *testing.T) {
	t.Helper()

	content := `
debug: true
server:
  address: ":9090"
  read_timeout: 5s
database:
  host: db.internal
  port: "5433"
  user: labelcore
  password: secret
  dbname: labelcore
  sslmode: require
redis:
  url: redis://cache:6379/1
elasticsearch:
  url: http://search:9200
  index: history_v2
worker:
  enabled: true
  poll_interval: 2m
platforms:
  - key: spotify
    base_url: https://api.spotify.example
    api_token: token-a
    enabled: true
  - key: bandcamp
    base_url: https://api.bandcamp.example
    enabled: true
    timeout: 20s
`
	cfg, err := config.Load(writeConfigFile(t, content))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, "history_v2", cfg.Elasticsearch.Index)
	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Worker.PollInterval)

	require.Len(t, cfg.Platforms, 2)
	assert.Equal(t, 10*time.Second, cfg.Platforms[0].Timeout)
	assert.Equal(t, 20*time.Second, cfg.Platforms[1].Timeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Helper()

	t.Setenv("DB_HOST", "db.override")
	t.Setenv("DB_PASSWORD", "env-secret")
	t.Setenv("REDIS_URL", "redis://override:6379/0")
	t.Setenv("APP_DEBUG", "yes")
	t.Setenv("LABELCORE_PORT", "9999")

	cfg, err := config.Load(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, "env-secret", cfg.Database.Password)
	assert.Equal(t, "redis://override:6379/0", cfg.Redis.URL)
	assert.True(t, cfg.Debug)
	assert.Equal(t, ":9999", cfg.Server.Address)
}

func TestLoadValidationFailures(t *testing.T) {
	t.Helper()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing database host",
			content: `
redis:
  url: redis://localhost:6379/0
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing redis url",
			content: `
database:
  host: localhost
  dbname: labelcore
`,
			wantErr: "redis.url is required",
		},
		{
			name: "duplicate platform keys",
			content: minimalConfig + `
platforms:
  - key: spotify
    base_url: https://a.example
    enabled: true
  - key: spotify
    base_url: https://b.example
    enabled: true
`,
			wantErr: "duplicated",
		},
		{
			name: "enabled platform without base url",
			content: minimalConfig + `
platforms:
  - key: spotify
    enabled: true
`,
			wantErr: "base_url is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfigFile(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Helper()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
