package engine

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey             string
	LLMAPIKeyFallbacks    []string
	LLMAPIBase            string
	LLMModel              string
	LLMTemperature        float64
	LLMMaxTokens          int
	FetchTimeout          time.Duration
	BridgeTimeout         time.Duration // per-call privileged bridge round-trip
	RateLimit             float64       // outbound YouTube requests per second
	RateBurst             int
	Hl                    string
	Gl                    string
	APIKeyOverride        string // used only when the watch page exposes no INNERTUBE_API_KEY
	ClientVersionOverride string
	UseBrowserClient      bool
	CacheMaxEntries       int
	CacheCleanupInterval  time.Duration
	CacheTTL              time.Duration
	RedisURL              string
	DatabaseURL           string // empty = SQLite under DataDir
	DataDir               string
	HTTPClient            *http.Client
	BrowserClient         *BrowserClient // nil = plain net/http
	LLMClient             *llm.Client    // nil = vocab tools disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (captions, bridge, page).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}

// LoadConfig reads the engine configuration from the environment.
// Clients (HTTP, browser, LLM) are left for the caller to attach.
func LoadConfig() Config {
	return Config{
		LLMAPIKey:             env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:    env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:            env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:              env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:        env.Float("LLM_TEMPERATURE", 0.0),
		LLMMaxTokens:          env.Int("LLM_MAX_TOKENS", 8192),
		FetchTimeout:          env.Duration("FETCH_TIMEOUT", 15*time.Second),
		BridgeTimeout:         env.Duration("BRIDGE_TIMEOUT", 10*time.Second),
		RateLimit:             env.Float("YT_RATE_LIMIT", 4),
		RateBurst:             env.Int("YT_RATE_BURST", 4),
		Hl:                    env.Str("YT_HL", "en"),
		Gl:                    env.Str("YT_GL", "US"),
		APIKeyOverride:        env.Str("YT_API_KEY", ""),
		ClientVersionOverride: env.Str("YT_CLIENT_VERSION", ""),
		UseBrowserClient:      env.Str("USE_BROWSER_CLIENT", "") == "true",
		CacheMaxEntries:       env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval:  env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		CacheTTL:              env.Duration("CACHE_TTL", 6*time.Hour),
		RedisURL:              env.Str("REDIS_URL", ""),
		DatabaseURL:           env.Str("DATABASE_URL", ""),
		DataDir:               env.Str("DATA_DIR", ""),
	}
}

// Setup loads the configuration, attaches clients, and initializes the engine and cache.
func Setup() Config {
	c := LoadConfig()
	c.HTTPClient = NewHTTPClient(c.FetchTimeout)
	if c.UseBrowserClient {
		bc, err := NewBrowserClient(int(c.FetchTimeout / time.Second))
		if err != nil {
			slog.Warn("browser client init failed, using net/http", slog.Any("error", err))
		} else {
			c.BrowserClient = bc
			slog.Info("browser client initialized")
		}
	}
	if c.LLMAPIKey != "" {
		c.LLMClient = NewLLMClient(c)
	}
	Init(c)
	InitCache(c.RedisURL, c.CacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
	return c
}
