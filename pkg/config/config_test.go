package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1.5, cfg.Search.K1)
	assert.Equal(t, 0.75, cfg.Search.B)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, "embedded", cfg.Catalog.Source)
	assert.Equal(t, "memory", cfg.Synonyms.Store)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  readTimeout: 3s
search:
  topK: 5
  defaultLanguage: en
`), 0o644))

	t.Setenv("MS_SEARCH_TOP_K", "7")
	t.Setenv("MS_SERVER_ALLOW_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("MS_SERVER_TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")
	t.Setenv("MS_SEARCH_LEARNING", "false")
	t.Setenv("MS_SERVER_RATE_LIMIT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 7, cfg.Search.TopK, "environment wins over the file")
	assert.Equal(t, "en", cfg.Search.DefaultLanguage)
	assert.False(t, cfg.Search.Learning)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.Zero(t, cfg.Server.RateLimitPerMinute, "unparsable values are ignored")
	assert.Equal(t, 0.75, cfg.Search.B, "unset fields keep their defaults")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown catalog source", func(c *Config) { c.Catalog.Source = "s3" }},
		{"file without path", func(c *Config) { c.Catalog.Source = "file" }},
		{"postgres disabled", func(c *Config) { c.Catalog.Source = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Synonyms.Store = "sqlite"; c.Synonyms.SQLitePath = "" }},
		{"redis disabled", func(c *Config) { c.Synonyms.Store = "redis" }},
		{"unknown store", func(c *Config) { c.Synonyms.Store = "etcd" }},
		{"b out of range", func(c *Config) { c.Search.B = 1.2 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitPerMinute = -1 }},
		{"negative top k", func(c *Config) { c.Search.TopK = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
