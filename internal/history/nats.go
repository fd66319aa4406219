package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/pkg/metrics"
)

// maxAppendAttempts bounds retries when a concurrent writer wins the revision race.
const maxAppendAttempts = 5

// ErrConflict is returned when an append keeps losing to concurrent writers.
var ErrConflict = errors.New("history append conflict")

// NATSStore keeps each thread as one JSON array in a JetStream key-value bucket. Expiry is
// the bucket's TTL.
type NATSStore struct {
	kv jetstream.KeyValue
}

// NewNATSStore creates a store over kv.
func NewNATSStore(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// Get returns the thread's turns oldest first. A missing or expired key yields no turns.
func (s *NATSStore) Get(ctx context.Context, threadKey string) ([]model.Turn, error) {
	turns, _, err := s.load(ctx, threadKey)
	metrics.RecordHistoryOp(BackendNATS, "get", err)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// AppendUser records a user turn.
func (s *NATSStore) AppendUser(ctx context.Context, threadKey, text string) error {
	return s.append(ctx, threadKey, model.UserTurn(text))
}

// AppendAssistant records an assistant turn.
func (s *NATSStore) AppendAssistant(ctx context.Context, threadKey, text string) error {
	return s.append(ctx, threadKey, model.AssistantTurn(text))
}

// Clear removes the thread's history.
func (s *NATSStore) Clear(ctx context.Context, threadKey string) error {
	err := s.kv.Delete(ctx, threadKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		err = nil
	}
	metrics.RecordHistoryOp(BackendNATS, "clear", err)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// load returns the stored turns and the revision they were read at. Revision 0 means the
// key does not exist.
func (s *NATSStore) load(ctx context.Context, threadKey string) ([]model.Turn, uint64, error) {
	entry, err := s.kv.Get(ctx, threadKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read history: %w", err)
	}

	var turns []model.Turn
	if err := json.Unmarshal(entry.Value(), &turns); err != nil {
		return nil, 0, fmt.Errorf("failed to decode history: %w", err)
	}
	return turns, entry.Revision(), nil
}

func (s *NATSStore) append(ctx context.Context, threadKey string, turn model.Turn) error {
	var err error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err = s.tryAppend(ctx, threadKey, turn)
		if !isRevisionConflict(err) {
			break
		}
	}
	if isRevisionConflict(err) {
		err = ErrConflict
	}
	metrics.RecordHistoryOp(BackendNATS, "append", err)
	if err != nil {
		return fmt.Errorf("failed to append %s turn: %w", turn.Role, err)
	}
	return nil
}

func (s *NATSStore) tryAppend(ctx context.Context, threadKey string, turn model.Turn) error {
	turns, revision, err := s.load(ctx, threadKey)
	if err != nil {
		return err
	}

	data, err := json.Marshal(append(turns, turn))
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if revision == 0 {
		_, err = s.kv.Create(ctx, threadKey, data)
		return err
	}
	_, err = s.kv.Update(ctx, threadKey, data, revision)
	return err
}

func isRevisionConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
