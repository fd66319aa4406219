// Package history stores the turns of Slack threads in a TTL'd cache.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/capitalize-ai/threadbot/internal/model"
)

// Backend names.
const (
	BackendRedis = "redis"
	BackendNATS  = "nats"
)

func encodeTurn(turn model.Turn) ([]byte, error) {
	data, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn: %w", err)
	}
	return data, nil
}

func decodeTurn(data []byte) (model.Turn, error) {
	var turn model.Turn
	if err := json.Unmarshal(data, &turn); err != nil {
		return model.Turn{}, fmt.Errorf("failed to decode turn: %w", err)
	}
	return turn, nil
}
