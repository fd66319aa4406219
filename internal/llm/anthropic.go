package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return string(ProviderAnthropic)
}

// CompleteStream sends a streaming completion request. System messages are sent as the
// request's system prompt.
func (c *AnthropicClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	system, conversation := splitSystem(req.Messages)

	messages := make([]anthropic.MessageParam, len(conversation))
	for i, msg := range conversation {
		messages[i] = anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(req.Model),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Messages:    anthropic.F(messages),
		Temperature: anthropic.F(req.Temperature),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{{
			Type: anthropic.F(anthropic.TextBlockParamTypeText),
			Text: anthropic.F(system),
		}})
	}

	stream := c.client.Messages.NewStreaming(ctx, params)

	var content strings.Builder
	var tokensIn, tokensOut int
	var stopReason string
	index := 0

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case anthropic.MessageStreamEventTypeMessageStart:
			tokensIn = int(event.Message.Usage.InputTokens)
		case anthropic.MessageStreamEventTypeContentBlockDelta:
			if event.Delta.Type == "text_delta" {
				token := event.Delta.Text
				content.WriteString(token)
				if err := callback(token, index); err != nil {
					return nil, err
				}
				index++
			}
		case anthropic.MessageStreamEventTypeMessageDelta:
			stopReason = string(event.Delta.StopReason)
			tokensOut = int(event.Usage.OutputTokens)
		}
	}

	if err := stream.Err(); err != nil {
		return nil, err
	}

	return &CompletionResponse{
		Content:    content.String(),
		Model:      req.Model,
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
