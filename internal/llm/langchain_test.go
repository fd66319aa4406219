package llm_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tmc/langchaingo/llms"

	"github.com/capitalize-ai/threadbot/internal/llm"
)

// scriptedModel streams a fixed list of chunks.
type scriptedModel struct {
	chunks   []string
	err      error
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, opt := range options {
		opt(&m.options)
	}

	var content string
	for _, chunk := range m.chunks {
		if m.options.StreamingFunc != nil {
			if err := m.options.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
		content += chunk
	}
	if m.err != nil {
		return nil, m.err
	}

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:    content,
		StopReason: "stop",
		GenerationInfo: map[string]any{
			"PromptTokens":     12,
			"CompletionTokens": 3,
		},
	}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

var _ = Describe("LangChainClient", func() {
	request := &llm.CompletionRequest{
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   256,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: "Be brief."},
			{Role: "user", Content: "hi"},
		},
	}

	It("streams chunks to the callback in order", func() {
		model := &scriptedModel{chunks: []string{"Hel", "", "lo", "!"}}
		client := llm.NewLangChainClientWithModel(model)

		var tokens []string
		var indexes []int
		resp, err := client.CompleteStream(context.Background(), request, func(token string, index int) error {
			tokens = append(tokens, token)
			indexes = append(indexes, index)
			return nil
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(tokens).To(Equal([]string{"Hel", "lo", "!"}))
		Expect(indexes).To(Equal([]int{0, 1, 2}))
		Expect(resp.Content).To(Equal("Hello!"))
		Expect(resp.TokensIn).To(Equal(12))
		Expect(resp.TokensOut).To(Equal(3))
		Expect(resp.StopReason).To(Equal("stop"))
	})

	It("passes the request through as call options", func() {
		model := &scriptedModel{chunks: []string{"ok"}}
		client := llm.NewLangChainClientWithModel(model)

		_, err := client.CompleteStream(context.Background(), request, func(string, int) error { return nil })
		Expect(err).NotTo(HaveOccurred())

		Expect(model.options.Model).To(Equal("gpt-4o-mini"))
		Expect(model.options.Temperature).To(Equal(0.2))
		Expect(model.options.MaxTokens).To(Equal(256))
		Expect(model.messages).To(HaveLen(2))
		Expect(model.messages[0].Role).To(Equal(llms.ChatMessageTypeSystem))
		Expect(model.messages[1].Role).To(Equal(llms.ChatMessageTypeHuman))
	})

	It("stops when the callback fails", func() {
		model := &scriptedModel{chunks: []string{"a", "b", "c"}}
		client := llm.NewLangChainClientWithModel(model)

		calls := 0
		_, err := client.CompleteStream(context.Background(), request, func(string, int) error {
			calls++
			return errors.New("update failed")
		})

		Expect(err).To(MatchError("update failed"))
		Expect(calls).To(Equal(1))
	})

	It("returns model errors", func() {
		client := llm.NewLangChainClientWithModel(&scriptedModel{err: errors.New("rate limited")})

		_, err := client.CompleteStream(context.Background(), request, func(string, int) error { return nil })
		Expect(err).To(MatchError("rate limited"))
	})
})

var _ = Describe("NewClient", func() {
	It("rejects unknown providers", func() {
		_, err := llm.NewClient("mystery", llm.Options{})
		Expect(err).To(MatchError(ContainSubstring("unknown llm provider")))
	})

	It("requires credentials", func() {
		_, err := llm.NewClient(llm.ProviderOpenAI, llm.Options{})
		Expect(err).To(HaveOccurred())

		_, err = llm.NewClient(llm.ProviderAnthropic, llm.Options{})
		Expect(err).To(HaveOccurred())
	})

	It("builds each provider", func() {
		for _, provider := range []llm.Provider{llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderLangChain} {
			client, err := llm.NewClient(provider, llm.Options{
				OpenAIAPIKey:    "sk-test",
				AnthropicAPIKey: "sk-ant-test",
				Model:           "gpt-4o-mini",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Name()).To(Equal(string(provider)))
		}
	})
})
