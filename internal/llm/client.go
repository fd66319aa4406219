// Package llm provides streaming completion clients.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// StreamCallback is called for each token during streaming. Returning an error aborts the
// stream and the error is returned from CompleteStream.
type StreamCallback func(token string, index int) error

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// CompleteStream sends a streaming completion request.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderLangChain Provider = "langchain"
)

// Options carries provider credentials.
type Options struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	Model           string
	Logger          *logger.Logger
}

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, opts Options) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL)
	case ProviderAnthropic:
		return NewAnthropicClient(opts.AnthropicAPIKey)
	case ProviderLangChain:
		return NewLangChainClient(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.Model, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// splitSystem separates system messages from the conversation. Providers without a system
// role in their message list take the joined result as a separate instruction.
func splitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var system []string
	rest := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}
