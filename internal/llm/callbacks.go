package llm

import (
	"context"

	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/pkg/logger"
)

var _ callbacks.Handler = (*LogCallbackHandler)(nil)

// LogCallbackHandler logs langchaingo model and retriever events.
type LogCallbackHandler struct {
	callbacks.SimpleHandler
	logger *logger.Logger
}

// NewLogCallbackHandler creates a callback handler writing to log.
func NewLogCallbackHandler(log *logger.Logger) *LogCallbackHandler {
	return &LogCallbackHandler{logger: log.Component("langchain")}
}

func (h *LogCallbackHandler) HandleLLMGenerateContentStart(_ context.Context, ms []llms.MessageContent) {
	h.logger.Debug("generate content start", zap.Int("messages", len(ms)))
}

func (h *LogCallbackHandler) HandleLLMGenerateContentEnd(_ context.Context, res *llms.ContentResponse) {
	if res == nil {
		return
	}
	h.logger.Debug("generate content end", zap.Int("choices", len(res.Choices)))
}

func (h *LogCallbackHandler) HandleLLMError(_ context.Context, err error) {
	h.logger.Error("llm error", zap.Error(err))
}

func (h *LogCallbackHandler) HandleRetrieverStart(_ context.Context, query string) {
	h.logger.Debug("retriever start", zap.Int("query_len", len(query)))
}

func (h *LogCallbackHandler) HandleRetrieverEnd(_ context.Context, _ string, documents []schema.Document) {
	h.logger.Debug("retriever end", zap.Int("documents", len(documents)))
}
