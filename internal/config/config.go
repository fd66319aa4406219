// Package config provides environment configuration for threadbot.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

// Mode is the entry point the process was started with.
type Mode string

const (
	ModeSocket  Mode = "socket"
	ModeHTTP    Mode = "http"
	ModeReindex Mode = "reindex"
)

// Retrieval modes.
const (
	RetrievalPlain     = "plain"
	RetrievalAugmented = "retrieval"
)

// Config holds all configuration for the application.
type Config struct {
	Mode Mode
	Env  string

	Server    ServerConfig
	Slack     SlackConfig
	LLM       LLMConfig
	History   HistoryConfig
	NATS      NATSConfig
	Retrieval RetrievalConfig
	Pinecone  PineconeConfig
	Reply     ReplyConfig
	Admin     AdminConfig

	// Logging
	LogLevel string `validate:"oneof=debug info warn warning error fatal"`

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// ServerConfig configures the HTTP entry point.
type ServerConfig struct {
	Port              string        `validate:"required,numeric"`
	ReadTimeout       time.Duration `validate:"gt=0"`
	WriteTimeout      time.Duration `validate:"gt=0"`
	RateLimitRequests int           `validate:"gt=0"`
	RateLimitWindow   time.Duration `validate:"gt=0"`
}

// SlackConfig holds Slack credentials.
type SlackConfig struct {
	SigningSecret string
	BotToken      string
	AppToken      string
	APIURL        string
	// MaxConcurrentMentions bounds in-flight generations in socket mode.
	MaxConcurrentMentions int `validate:"gt=0"`
}

// LLMConfig selects and tunes the completion provider.
type LLMConfig struct {
	Provider        string  `validate:"oneof=openai anthropic langchain"`
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	Model           string
	Temperature     float64 `validate:"gte=0,lte=2"`
	MaxTokens       int     `validate:"gte=0"`
	EmbeddingModel  string
}

// HistoryConfig configures the conversation history cache.
type HistoryConfig struct {
	Backend   string        `validate:"oneof=redis nats"`
	RedisURL  string
	KeyPrefix string        `validate:"required"`
	Bucket    string        `validate:"required"`
	TTL       time.Duration `validate:"gt=0"`
}

// NATSConfig holds NATS connection settings for the nats history backend.
type NATSConfig struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// RetrievalConfig selects plain or retrieval-augmented prompting.
type RetrievalConfig struct {
	Mode      string `validate:"oneof=plain retrieval"`
	TopK      int    `validate:"gt=0"`
	Namespace string
}

// PineconeConfig identifies the vector index.
type PineconeConfig struct {
	APIKey    string
	Index     string
	Host      string
	Cloud     string `validate:"oneof=aws gcp azure"`
	Region    string `validate:"required"`
	Dimension int    `validate:"gt=0"`
}

// ReplyConfig tunes how answers are rendered in Slack.
type ReplyConfig struct {
	UpdateInterval time.Duration `validate:"gt=0"`
	SystemPrompt   string        `validate:"required"`
	Disclaimer     string        `validate:"required"`
	ErrorNotice    string        `validate:"required"`
}

// AdminConfig guards the history admin routes.
type AdminConfig struct {
	JWTSecret string
}

// DefaultSystemPrompt is the instruction prepended to every conversation.
const DefaultSystemPrompt = "You are a helpful assistant answering questions inside a Slack thread. Answer concisely and format with Slack mrkdwn."

// DefaultDisclaimer is rendered in small print under every final answer.
const DefaultDisclaimer = "Information generated by the OpenAI API may be inaccurate or inappropriate and does not represent our views."

// Load reads configuration from the environment for the given mode. A .env file in the
// working directory is loaded first when present. Missing required settings are an error.
func Load(mode Mode) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Mode: mode,
		Env:  getEnv("THREADBOT_ENV", "production"),

		Server: ServerConfig{
			Port:              getEnv("PORT", "3000"),
			ReadTimeout:       getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:      getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
			RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},

		Slack: SlackConfig{
			SigningSecret:         getEnv("SLACK_SIGNING_SECRET", ""),
			BotToken:              getEnv("SLACK_BOT_TOKEN", ""),
			AppToken:              getEnv("SLACK_APP_TOKEN", ""),
			APIURL:                getEnv("SLACK_API_URL", ""),
			MaxConcurrentMentions: getIntEnv("MAX_CONCURRENT_MENTIONS", 8),
		},

		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:           getEnv("OPENAI_API_MODEL", ""),
			MaxTokens:       getIntEnv("LLM_MAX_TOKENS", 0),
			EmbeddingModel:  getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
		},

		History: HistoryConfig{
			Backend:   strings.ToLower(getEnv("HISTORY_BACKEND", "redis")),
			RedisURL:  getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("HISTORY_KEY_PREFIX", "threadbot:history"),
			Bucket:    getEnv("HISTORY_BUCKET", "THREADBOT_HISTORY"),
		},

		NATS: NATSConfig{
			URL:      getEnv("NATS_URL", ""),
			CAFile:   getEnv("NATS_CA_FILE", ""),
			CertFile: getEnv("NATS_CERT_FILE", ""),
			KeyFile:  getEnv("NATS_KEY_FILE", ""),
			Token:    getEnv("NATS_TOKEN", ""),
		},

		Retrieval: RetrievalConfig{
			Mode:      strings.ToLower(getEnv("RETRIEVAL_MODE", RetrievalPlain)),
			TopK:      getIntEnv("RETRIEVAL_TOP_K", 4),
			Namespace: getEnv("PINECONE_NAMESPACE", ""),
		},

		Pinecone: PineconeConfig{
			APIKey:    getEnv("PINECONE_API_KEY", ""),
			Index:     getEnv("PINECONE_INDEX", ""),
			Host:      getEnv("PINECONE_HOST", ""),
			Cloud:     strings.ToLower(getEnv("PINECONE_CLOUD", "aws")),
			Region:    getEnv("PINECONE_REGION", "us-east-1"),
			Dimension: getIntEnv("PINECONE_DIMENSION", 1536),
		},

		Reply: ReplyConfig{
			UpdateInterval: getDurationEnv("STREAM_UPDATE_INTERVAL", time.Second),
			SystemPrompt:   getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
			Disclaimer:     getEnv("DISCLAIMER", DefaultDisclaimer),
			ErrorNotice:    getEnv("ERROR_NOTICE", "Sorry, something went wrong while generating this answer."),
		},

		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}

	if missing := missingKeys(mode, cfg.LLM.Provider, cfg.History.Backend, cfg.Retrieval.Mode); len(missing) > 0 {
		return nil, oops.
			Code("config_missing").
			With("mode", string(mode)).
			Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if mode != ModeReindex {
		temp, err := strconv.ParseFloat(os.Getenv("OPENAI_API_TEMPERATURE"), 64)
		if err != nil {
			return nil, oops.Code("config_invalid").Errorf("OPENAI_API_TEMPERATURE: %w", err)
		}
		cfg.LLM.Temperature = temp

		hours, err := strconv.Atoi(os.Getenv("HISTORY_TTL_HOURS"))
		if err != nil || hours <= 0 {
			return nil, oops.Code("config_invalid").Errorf("HISTORY_TTL_HOURS must be a positive integer")
		}
		cfg.History.TTL = time.Duration(hours) * time.Hour
	} else {
		cfg.History.TTL = time.Hour
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, oops.Code("config_invalid").Errorf("failed to validate config: %w", err)
	}

	return cfg, nil
}

// missingKeys lists the environment keys the mode needs but which are unset or empty.
func missingKeys(mode Mode, provider, backend, retrievalMode string) []string {
	var required []string

	switch mode {
	case ModeReindex:
		required = append(required, "PINECONE_API_KEY", "PINECONE_INDEX")
	case ModeSocket, ModeHTTP:
		required = append(required,
			"SLACK_BOT_TOKEN",
			"OPENAI_API_MODEL",
			"OPENAI_API_TEMPERATURE",
			"HISTORY_TTL_HOURS",
		)
		if mode == ModeSocket {
			required = append(required, "SLACK_APP_TOKEN")
		} else {
			required = append(required, "SLACK_SIGNING_SECRET")
		}

		switch provider {
		case "anthropic":
			required = append(required, "ANTHROPIC_API_KEY")
		default:
			required = append(required, "OPENAI_API_KEY")
		}

		switch backend {
		case "nats":
			required = append(required, "NATS_URL")
		default:
			required = append(required, "REDIS_URL")
		}

		if retrievalMode == RetrievalAugmented {
			required = append(required, "PINECONE_API_KEY", "PINECONE_INDEX", "PINECONE_HOST", "OPENAI_API_KEY")
		}
	}

	var missing []string
	seen := make(map[string]bool)
	for _, key := range required {
		if seen[key] {
			continue
		}
		seen[key] = true
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// IsDevelopment reports whether the process runs in development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// RetrievalEnabled reports whether prompts are augmented with vector search results.
func (c *Config) RetrievalEnabled() bool {
	return c.Retrieval.Mode == RetrievalAugmented
}

// AdminEnabled reports whether the admin routes should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.Admin.JWTSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
