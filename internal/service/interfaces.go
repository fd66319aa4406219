// Package service implements mention handling for threadbot.
package service

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/capitalize-ai/threadbot/internal/model"
)

// ReplySink posts and edits messages on the chat platform.
type ReplySink interface {
	PostMessage(ctx context.Context, channel, text, threadTS string) (string, error)
	UpdateMessage(ctx context.Context, channel, handle, text string, blocks []slack.Block) error
}

// HistoryStore persists the turns of a thread.
type HistoryStore interface {
	Get(ctx context.Context, key string) ([]model.Turn, error)
	AppendUser(ctx context.Context, key, text string) error
	AppendAssistant(ctx context.Context, key, text string) error
	Clear(ctx context.Context, key string) error
}

// Passage is a piece of retrieved context.
type Passage struct {
	Content string
	Score   float32
	Source  string
}

// Retriever looks up passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Passage, error)
}
