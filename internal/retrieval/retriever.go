// Package retrieval provides vector search over a Pinecone index and the index's
// maintenance operations.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/pinecone"

	"github.com/capitalize-ai/threadbot/internal/llm"
	"github.com/capitalize-ai/threadbot/internal/service"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// Config identifies the index and the embedding model used to query it.
type Config struct {
	PineconeAPIKey string
	PineconeHost   string
	Namespace      string
	OpenAIAPIKey   string
	EmbeddingModel string
	TopK           int
}

// Retriever answers queries with the closest documents of a vector store.
type Retriever struct {
	docs schema.Retriever
}

// New builds a Pinecone-backed retriever embedding queries with OpenAI.
func New(cfg Config, log *logger.Logger) (*Retriever, error) {
	if cfg.PineconeAPIKey == "" || cfg.PineconeHost == "" {
		return nil, errors.New("pinecone api key and host are required")
	}

	embedLLM, err := openai.New(
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(embedLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	opts := []pinecone.Option{
		pinecone.WithHost(cfg.PineconeHost),
		pinecone.WithAPIKey(cfg.PineconeAPIKey),
		pinecone.WithEmbedder(embedder),
	}
	if cfg.Namespace != "" {
		opts = append(opts, pinecone.WithNameSpace(cfg.Namespace))
	}

	store, err := pinecone.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone store: %w", err)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}

	r := vectorstores.ToRetriever(store, topK)
	r.CallbacksHandler = llm.NewLogCallbackHandler(log)

	return NewWithRetriever(r), nil
}

// NewWithRetriever wraps any langchaingo retriever.
func NewWithRetriever(docs schema.Retriever) *Retriever {
	return &Retriever{docs: docs}
}

// Retrieve returns passages relevant to query, best match first. Empty documents are skipped.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]service.Passage, error) {
	docs, err := r.docs.GetRelevantDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve documents: %w", err)
	}

	passages := make([]service.Passage, 0, len(docs))
	for _, doc := range docs {
		if doc.PageContent == "" {
			continue
		}
		source, _ := doc.Metadata["source"].(string)
		passages = append(passages, service.Passage{
			Content: doc.PageContent,
			Score:   doc.Score,
			Source:  source,
		})
	}
	return passages, nil
}
