package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// ErrThreadNotFound is returned when a thread has no stored history.
var ErrThreadNotFound = errors.New("thread not found")

// ThreadService exposes stored thread history to operators.
type ThreadService struct {
	history HistoryStore
	logger  *logger.Logger
}

// NewThreadService creates a new thread service.
func NewThreadService(history HistoryStore, log *logger.Logger) *ThreadService {
	return &ThreadService{
		history: history,
		logger:  log.Component("thread"),
	}
}

// Get returns the turns stored for a thread.
func (s *ThreadService) Get(ctx context.Context, key string) (*model.ThreadHistory, error) {
	turns, err := s.history.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(turns) == 0 {
		return nil, ErrThreadNotFound
	}

	return &model.ThreadHistory{
		ThreadKey: key,
		Turns:     turns,
		Total:     len(turns),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Clear deletes a thread's history.
func (s *ThreadService) Clear(ctx context.Context, key string) error {
	if err := s.history.Clear(ctx, key); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Info("thread history cleared", zap.String("thread_key", key))
	return nil
}
