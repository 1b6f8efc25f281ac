package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides application configuration and the hot-reloadable pricing policy.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Provide(NewPricingPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ProviderOrder overrides the orchestrator fallback order for "both"
	// mode, comma-separated provider names. Empty keeps the default.
	ProviderOrder []string

	UPS      UPSConfig
	Easyship EasyshipConfig
	LLM      LLMConfig
}

// UPSConfig carries credentials for the UPS Landed Cost API.
// Empty ClientID/ClientSecret disables the adapter rather than failing startup.
type UPSConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Timeout      time.Duration
}

// EasyshipConfig carries credentials for the Easyship tax & duty API.
type EasyshipConfig struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// LLMConfig carries settings for the reasoning-model duty estimator.
// BaseURL must point at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "landedcost"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "landedcost"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		ProviderOrder: splitList(getenv("PROVIDER_ORDER", "")),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       int(getenvInt64("REDIS_DB", 0)),

		UPS: UPSConfig{
			ClientID:     strings.TrimSpace(getenv("UPS_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv("UPS_CLIENT_SECRET", "")),
			BaseURL:      getenv("UPS_BASE_URL", "https://onlinetools.ups.com"),
			// Landed-cost quoting is compute-heavy server-side; UPS can take minutes.
			Timeout: getenvDuration("UPS_TIMEOUT", 180*time.Second),
		},
		Easyship: EasyshipConfig{
			AccessToken: strings.TrimSpace(getenv("EASYSHIP_ACCESS_TOKEN", "")),
			BaseURL:     getenv("EASYSHIP_BASE_URL", "https://api.easyship.com"),
			Timeout:     getenvDuration("EASYSHIP_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			APIKey:  strings.TrimSpace(getenv("LLM_API_KEY", "")),
			BaseURL: getenv("LLM_BASE_URL", "https://api.openai.com"),
			Model:   getenv("LLM_MODEL", "gpt-4o"),
			Timeout: getenvDuration("LLM_TIMEOUT", 60*time.Second),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
