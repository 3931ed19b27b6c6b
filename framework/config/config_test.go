package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val) // automatically restored after test
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"App.Name", cfg.App.Name, "GoIoC"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "json"},
		{"Container.SuggestionDistance", cfg.Container.SuggestionDistance, 3},
		{"Container.AliasLogging", cfg.Container.AliasLogging, false},
		{"AI.Provider", cfg.AI.Provider, "local"},
		{"App.BasePath", cfg.App.BasePath, "."},
		{"Container.AdminToken", cfg.Container.AdminToken, ""},
		{"Cache.TTL", cfg.Cache.TTL, time.Hour},
		{"Error.Display", cfg.Error.Display, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	setEnv(t, "APP_NAME", "MyApp")
	setEnv(t, "APP_ENV", "production")
	setEnv(t, "CONTAINER_SUGGESTION_DISTANCE", "1")
	setEnv(t, "CONTAINER_PROFILES_FILE", "aliases.yaml")

	cfg := config.Load()

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, 1, cfg.Container.SuggestionDistance)
	assert.Equal(t, "aliases.yaml", cfg.Container.ProfilesFile)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "LOG_FORMAT=console\nAI_MODEL=tiny\n")
	t.Cleanup(func() {
		os.Unsetenv("LOG_FORMAT")
		os.Unsetenv("AI_MODEL")
	})

	cfg := config.Load(path)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "tiny", cfg.AI.Model)
}

func TestLoad_AppDebug(t *testing.T) {
	setEnv(t, "APP_DEBUG", "false")
	assert.False(t, config.Load().App.Debug)

	setEnv(t, "APP_DEBUG", "true")
	assert.True(t, config.Load().App.Debug)
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet(t *testing.T) {
	setEnv(t, "CUSTOM_KEY", "hello")
	assert.Equal(t, "hello", config.Get("CUSTOM_KEY", "default"))

	os.Unsetenv("MISSING_KEY")
	assert.Equal(t, "fallback", config.Get("MISSING_KEY", "fallback"))
}

func TestGetInt(t *testing.T) {
	setEnv(t, "SOME_INT", "42")
	assert.Equal(t, 42, config.GetInt("SOME_INT", 0))

	setEnv(t, "SOME_INT", "notanint")
	assert.Equal(t, 99, config.GetInt("SOME_INT", 99))
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		setEnv(t, "BOOL_KEY", val)
		assert.True(t, config.GetBool("BOOL_KEY", false), val)
	}

	setEnv(t, "BOOL_KEY", "false")
	assert.False(t, config.GetBool("BOOL_KEY", true))

	setEnv(t, "BOOL_KEY", "notabool")
	assert.True(t, config.GetBool("BOOL_KEY", true))
}

func TestGetDuration(t *testing.T) {
	setEnv(t, "TTL_KEY", "90s")
	assert.Equal(t, 90*time.Second, config.GetDuration("TTL_KEY", time.Minute))

	setEnv(t, "TTL_KEY", "soon")
	assert.Equal(t, time.Minute, config.GetDuration("TTL_KEY", time.Minute))
}

// ── Parameters ───────────────────────────────────────────────────────────────

type paramBag map[string]any

func (b paramBag) SetParameter(key string, v any) { b[key] = v }

func TestLoadParameters_YAML(t *testing.T) {
	path := writeFile(t, "params.yaml", "mail:\n  host: smtp.local\n  port: 2525\nname: ioc\n")

	params, err := config.LoadParameters(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.local", params["mail.host"])
	assert.Equal(t, 2525, params["mail.port"])
	assert.Equal(t, "ioc", params["name"])
}

func TestLoadParameters_EnvOverride(t *testing.T) {
	path := writeFile(t, "params.toml", "[mail]\nhost = \"smtp.local\"\n")
	setEnv(t, "IOC_MAIL_HOST", "smtp.prod")

	params, err := config.LoadParameters(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.prod", params["mail.host"])
}

func TestApplyParameters(t *testing.T) {
	path := writeFile(t, "params.json", `{"cache": {"ttl": 60}}`)
	bag := paramBag{}

	n, err := config.ApplyParameters(path, bag)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, bag, "cache.ttl")
}

func TestLoadParameters_MissingFile(t *testing.T) {
	_, err := config.LoadParameters(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// ── Error formats ────────────────────────────────────────────────────────────

func TestLoadErrorFormats(t *testing.T) {
	path := writeFile(t, "error.yaml", `
formats:
  production:
    message: "An error occurred: :message"
  local:
    message: "Development error: :message"
    trace: "Stack: :trace"
`)

	formats, err := config.LoadErrorFormats(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{
		"production": {"message": "An error occurred: :message"},
		"local":      {"message": "Development error: :message", "trace": "Stack: :trace"},
	}, formats)
}

func TestLoadErrorFormats_Empty(t *testing.T) {
	_, err := config.LoadErrorFormats(writeFile(t, "error.yaml", "display: true\n"))
	assert.Error(t, err)

	_, err = config.LoadErrorFormats(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
