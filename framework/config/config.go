package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Container ContainerConfig
	AI        AIConfig
	Cache     CacheConfig
	Error     ErrorConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	URL   string
	Port  string

	// BasePath anchors the config, storage and resources directories.
	BasePath string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

// ContainerConfig tunes the IoC container and where its warm-start inputs
// come from.
type ContainerConfig struct {
	SuggestionDistance int
	AliasLogging       bool
	ProfilesFile       string
	WatchProfiles      bool
	ParametersFile     string

	// AdminToken enables the diagnostics write endpoints for bearers of
	// this token. Empty keeps them unmounted.
	AdminToken string
}

type AIConfig struct {
	Provider string // local | completion | none
	Endpoint string
	APIKey   string
	Model    string
}

// CacheConfig locates the file cache. An empty Dir means
// <BasePath>/storage/framework/cache.
type CacheConfig struct {
	Dir string
	TTL time.Duration
}

// ErrorConfig controls how errors are rendered to clients.
type ErrorConfig struct {
	Display     bool   // false reports only {"status": "error"}
	FormatsFile string // per-environment templates, see LoadErrorFormats
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoIoC"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			URL:   env("APP_URL", "http://localhost"),
			Port:  env("APP_PORT", "8000"),

			BasePath: env("APP_BASE_PATH", "."),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
		Container: ContainerConfig{
			SuggestionDistance: GetInt("CONTAINER_SUGGESTION_DISTANCE", 3),
			AliasLogging:       envBool("CONTAINER_ALIAS_LOGGING", false),
			ProfilesFile:       env("CONTAINER_PROFILES_FILE", ""),
			WatchProfiles:      envBool("CONTAINER_WATCH_PROFILES", false),
			ParametersFile:     env("CONTAINER_PARAMETERS_FILE", ""),
			AdminToken:         env("CONTAINER_ADMIN_TOKEN", ""),
		},
		AI: AIConfig{
			Provider: env("AI_PROVIDER", "local"),
			Endpoint: env("AI_ENDPOINT", ""),
			APIKey:   env("AI_API_KEY", ""),
			Model:    env("AI_MODEL", ""),
		},
		Cache: CacheConfig{
			Dir: env("CACHE_DIR", ""),
			TTL: GetDuration("CACHE_TTL", time.Hour),
		},
		Error: ErrorConfig{
			Display:     envBool("DISPLAY_ERRORS", true),
			FormatsFile: env("ERROR_FORMATS_FILE", ""),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetDuration returns a time.ParseDuration env value ("90s", "1h").
func GetDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
