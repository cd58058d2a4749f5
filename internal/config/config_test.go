package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/timeplan/internal/config"
)

func TestLoadWritesTemplateOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DriverBolt, cfg.Store.Driver)
	assert.Equal(t, config.DefaultEmail, cfg.User.Email)
	assert.Equal(t, time.Second, cfg.Timer.TickInterval)
	assert.False(t, cfg.Remote())

	_, err = os.Stat(path)
	require.NoError(t, err, "template should have been written")

	// The written template parses back to the same defaults.
	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadStripsCommentsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `// my config
{
  // keep data next to the config
  "data_dir": "` + filepath.ToSlash(dir) + `/data",
  "store": { "driver": "FILE" },
  "server": { "url": "http://localhost:8080/", "token": "abc" },
  "timer": { "tick_interval": "250ms" }
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(dir)+"/data", cfg.DataDir)
	assert.Equal(t, config.DriverFile, cfg.Store.Driver)
	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.True(t, cfg.Remote())
	assert.Equal(t, 250*time.Millisecond, cfg.Timer.TickInterval)
	assert.Equal(t, config.DefaultModel, cfg.Planner.Model)
}

func TestLoadEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"admin_emails": "file@example.com"}`), 0o600))

	t.Setenv("TIMEPLAN_USER_EMAIL", "env@example.com")
	t.Setenv("ADMIN_EMAILS", "boss@example.com")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", cfg.User.Email)
	assert.Equal(t, "boss@example.com", cfg.AdminEmails)
	assert.Equal(t, "sk-env", cfg.Planner.APIKey)
}

func TestLoadExpandsHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "~/tp-data"}`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NotContains(t, cfg.DataDir, "~")
	assert.Equal(t, "tp-data", filepath.Base(cfg.DataDir))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"driver":   `{"store": {"driver": "sqlite"}}`,
		"interval": `{"timer": {"tick_interval": "0s"}}`,
		"json":     `{"store": `,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}
