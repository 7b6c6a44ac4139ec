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
	t.Setenv(EnvBaseURL, "")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Server.Grace)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadyTimeout)
	assert.True(t, cfg.Reload.Enabled)
	assert.Equal(t, "/_hxssr/reload", cfg.Reload.Path)
	assert.Equal(t, []string{"."}, cfg.Watch.Paths)
	assert.Equal(t, []string{".go", ".templ", ".html", ".css"}, cfg.Watch.Extensions)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("HXSSR_SERVER_ADDR", "127.0.0.1:8080")
	t.Setenv("HXSSR_SERVER_GRACE", "3s")
	t.Setenv("HXSSR_RELOAD_ENABLED", "false")
	t.Setenv("HXSSR_WATCH_EXTENSIONS", ".templ,.go")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.Grace)
	assert.False(t, cfg.Reload.Enabled)
	assert.Equal(t, []string{".templ", ".go"}, cfg.Watch.Extensions)
}

func TestLegacyBaseURLVariable(t *testing.T) {
	t.Setenv(EnvBaseURL, "  https://example.test/app  ")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/app", cfg.Server.BaseURL)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hxssr.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":4000"
  grace: 2s
watch:
  build: "go build -o ./tmp/app ."
log:
  format: json
`), 0o644))

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.Grace)
	assert.Equal(t, "go build -o ./tmp/app .", cfg.Watch.Build)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestReadFileMissing(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.NoError(t, ReadFile(New(), ""), "default file is optional")
	assert.Error(t, ReadFile(New(), "does-not-exist.yml"), "explicit file is required")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = " " }, "server.addr"},
		{"negative grace", func(c *Config) { c.Server.Grace = -time.Second }, "server.grace"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -1 }, "watch.debounce"},
		{"relative reload path", func(c *Config) { c.Reload.Path = "reload" }, "reload.path"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad base url", func(c *Config) { c.Server.BaseURL = "http://[::1" }, "server.base_url"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvBaseURL, "")
			cfg, err := Load(New())
			require.NoError(t, err)

			tc.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestDisabledReloadSkipsPathCheck(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	cfg, err := Load(New())
	require.NoError(t, err)

	cfg.Reload.Enabled = false
	cfg.Reload.Path = ""
	assert.NoError(t, cfg.Validate())
}
