package slackbot

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Sink posts and edits thread replies through chat.postMessage and chat.update.
type Sink struct {
	api *slack.Client
}

// NewSink creates a sink over api.
func NewSink(api *slack.Client) *Sink {
	return &Sink{api: api}
}

// PostMessage posts text into the thread rooted at threadTS and returns the new message's ts.
func (s *Sink) PostMessage(ctx context.Context, channel, text, threadTS string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := s.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return "", fmt.Errorf("chat.postMessage: %w", err)
	}
	return ts, nil
}

// UpdateMessage replaces the message identified by handle. Blocks are optional.
func (s *Sink) UpdateMessage(ctx context.Context, channel, handle, text string, blocks []slack.Block) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}

	if _, _, _, err := s.api.UpdateMessageContext(ctx, channel, handle, opts...); err != nil {
		return fmt.Errorf("chat.update: %w", err)
	}
	return nil
}
