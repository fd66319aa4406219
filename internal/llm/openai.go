package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is the OpenAI LLM client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client. baseURL may be empty.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return string(ProviderOpenAI)
}

// CompleteStream sends a streaming completion request.
func (c *OpenAIClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var content strings.Builder
	var stopReason string
	index := 0

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(response.Choices) == 0 {
			continue
		}

		if delta := response.Choices[0].Delta.Content; delta != "" {
			content.WriteString(delta)
			if err := callback(delta, index); err != nil {
				return nil, err
			}
			index++
		}

		if response.Choices[0].FinishReason != "" {
			stopReason = string(response.Choices[0].FinishReason)
		}
	}

	// Streaming responses carry no usage block; approximate at four characters a token.
	var promptChars int
	for _, msg := range req.Messages {
		promptChars += len(msg.Content)
	}

	return &CompletionResponse{
		Content:    content.String(),
		Model:      req.Model,
		TokensIn:   promptChars / 4,
		TokensOut:  content.Len() / 4,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
