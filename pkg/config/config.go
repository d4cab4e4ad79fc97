// Package config loads Ghost Wallet Hunter's runtime configuration from
// environment variables (optionally seeded from a .env file).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven knob the runtime needs.
type Config struct {
	// Solana RPC (C1 Provider Pool)
	SolanaRPCURL          string
	SolanaRPCFallbackURLs []string
	SolanaTimeout         time.Duration
	SolanaRetryMax        int
	SolanaRetryBase       time.Duration
	SolanaCommitment      string
	SignatureCacheTTL     time.Duration

	// HTTP boundary (C10)
	Host                 string
	Port                 int
	APIKeys              []string
	EnableAuthentication bool

	// Blacklist checker (C4)
	BlacklistCacheTTL  time.Duration
	BlacklistCachePath string
	SolscanAPIKey      string

	// Tool registry (C5) — LLM
	AIProvider      string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaURL       string
	OllamaModel     string
	AIModel         string
	AIMaxTokens     int

	// Tool registry (C5) — social tools
	TwitterUsername  string
	TwitterPassword  string
	TwitterEmail     string
	TwitterAuthToken string

	TelegramAPIID   int
	TelegramAPIHash string
	TelegramPhone   string
	TelegramBotToken string

	// Agent lifecycle (C8)
	DefaultWalletCooldown   time.Duration
	MaxTaskHistory          int
	AgentQueueCapacity      int

	// Persistence (C11)
	DBPath string
}

// Load reads environment variables (after loading .env if present) into a
// Config, applying the defaults documented in spec.md §6.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		SolanaRPCURL:          envOr("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		SolanaRPCFallbackURLs: splitTrim(os.Getenv("SOLANA_RPC_FALLBACK_URLS")),
		SolanaTimeout:         time.Duration(envInt("SOLANA_TIMEOUT_MS", 30000)) * time.Millisecond,
		SolanaRetryMax:        envInt("SOLANA_RETRY_MAX", 3),
		SolanaRetryBase:       time.Duration(envInt("SOLANA_RETRY_BASE_MS", 250)) * time.Millisecond,
		SolanaCommitment:      envOr("SOLANA_COMMITMENT", "confirmed"),
		SignatureCacheTTL:     time.Duration(envInt("SOLANA_SIGNATURE_CACHE_TTL_S", 60)) * time.Second,

		Host:                 envOr("HOST", "0.0.0.0"),
		Port:                 envInt("PORT", 8080),
		APIKeys:              splitTrim(os.Getenv("API_KEYS")),
		EnableAuthentication: envOr("ENABLE_AUTHENTICATION", "false") == "true",

		BlacklistCacheTTL:  time.Duration(envInt("BLACKLIST_CACHE_TTL_S", 3600)) * time.Second,
		BlacklistCachePath: envOr("BLACKLIST_CACHE_PATH", "blacklist_cache.json"),
		SolscanAPIKey:      os.Getenv("SOLSCAN_API_KEY"),

		AIProvider:      os.Getenv("AI_PROVIDER"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OllamaURL:       os.Getenv("OLLAMA_URL"),
		OllamaModel:     envOr("OLLAMA_MODEL", "llama3.1"),
		AIModel:         os.Getenv("AI_MODEL"),
		AIMaxTokens:     envInt("AI_MAX_TOKENS", 4096),

		TwitterUsername:  os.Getenv("TWITTER_USERNAME"),
		TwitterPassword:  os.Getenv("TWITTER_PASSWORD"),
		TwitterEmail:     os.Getenv("TWITTER_EMAIL"),
		TwitterAuthToken: os.Getenv("TWITTER_AUTH_TOKEN"),

		TelegramAPIHash:  os.Getenv("TELEGRAM_API_HASH"),
		TelegramPhone:    os.Getenv("TELEGRAM_PHONE"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DefaultWalletCooldown: time.Duration(envInt("WALLET_COOLDOWN_HOURS", 24)) * time.Hour,
		MaxTaskHistory:        envInt("MAX_TASK_HISTORY", 100),
		AgentQueueCapacity:    envInt("AGENT_QUEUE_CAPACITY", 64),

		DBPath: envOr("DB_PATH", "ghost_wallet_hunter.db"),
	}

	if v := os.Getenv("TELEGRAM_API_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			cfg.TelegramAPIID = id
		}
	}

	return cfg, nil
}

// Validate reports whether the configuration is internally consistent
// enough to serve traffic. An absent LLM/social credential only degrades
// the corresponding tools, so it is not fatal here.
func (c *Config) Validate() error {
	if c.SolanaRPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL must be set")
	}
	if c.EnableAuthentication && len(c.APIKeys) == 0 {
		return fmt.Errorf("ENABLE_AUTHENTICATION=true but no API_KEYS configured")
	}
	return nil
}

// Endpoints returns the deduplicated, order-preserving Solana RPC endpoint
// list: primary, then fallbacks, then the built-in public defaults.
func (c *Config) Endpoints() []string {
	seen := map[string]bool{}
	var out []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}
	add(c.SolanaRPCURL)
	for _, u := range c.SolanaRPCFallbackURLs {
		add(u)
	}
	for _, u := range defaultPublicEndpoints {
		add(u)
	}
	return out
}

var defaultPublicEndpoints = []string{
	"https://api.mainnet-beta.solana.com",
	"https://solana-api.projectserum.com",
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
