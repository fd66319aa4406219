package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// LangChainClient streams completions through langchaingo's OpenAI model.
type LangChainClient struct {
	model llms.Model
}

// NewLangChainClient creates a new langchaingo-backed client.
func NewLangChainClient(apiKey, baseURL, model string, log *logger.Logger) (*LangChainClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if log == nil {
		log = logger.Global()
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithCallback(NewLogCallbackHandler(log)),
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	chat, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain model: %w", err)
	}

	return NewLangChainClientWithModel(chat), nil
}

// NewLangChainClientWithModel wraps an existing langchaingo model.
func NewLangChainClientWithModel(model llms.Model) *LangChainClient {
	return &LangChainClient{model: model}
}

// Name returns the provider name.
func (c *LangChainClient) Name() string {
	return string(ProviderLangChain)
}

// CompleteStream sends a streaming completion request.
func (c *LangChainClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	content := make([]llms.MessageContent, len(req.Messages))
	for i, msg := range req.Messages {
		content[i] = llms.TextParts(chatMessageType(msg.Role), msg.Content)
	}

	index := 0
	options := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			err := callback(string(chunk), index)
			index++
			return err
		}),
	}
	if req.Model != "" {
		options = append(options, llms.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, content, options...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}

	choice := resp.Choices[0]
	tokensIn, _ := choice.GenerationInfo["PromptTokens"].(int)
	tokensOut, _ := choice.GenerationInfo["CompletionTokens"].(int)

	return &CompletionResponse{
		Content:    choice.Content,
		Model:      req.Model,
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		StopReason: choice.StopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
