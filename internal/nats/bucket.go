package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// bucketAPI is the part of jetstream.JetStream that manages key-value buckets.
type bucketAPI interface {
	KeyValue(ctx context.Context, bucket string) (jetstream.KeyValue, error)
	CreateKeyValue(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error)
	UpdateKeyValue(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error)
}

// EnsureBucket returns the key-value bucket with the given name, creating it when missing.
// ttl applies to every revision, so a key expires ttl after its last write. An existing
// bucket with a different TTL is updated to ttl.
func (c *Client) EnsureBucket(ctx context.Context, name string, ttl time.Duration) (jetstream.KeyValue, error) {
	return ensureBucket(ctx, c.js, name, ttl, c.logger)
}

func ensureBucket(ctx context.Context, js bucketAPI, name string, ttl time.Duration, log *logger.Logger) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, bucketConfig(name, ttl))
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		log.Info("created key-value bucket", zap.String("bucket", name), zap.Duration("ttl", ttl))
		return kv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up bucket %s: %w", name, err)
	}

	status, err := kv.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket %s status: %w", name, err)
	}
	if status.TTL() == ttl {
		return kv, nil
	}

	log.Warn("key-value bucket ttl differs from configuration, updating",
		zap.String("bucket", name),
		zap.Duration("current_ttl", status.TTL()),
		zap.Duration("ttl", ttl),
	)
	kv, err = js.UpdateKeyValue(ctx, bucketConfig(name, ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to update bucket %s: %w", name, err)
	}
	return kv, nil
}

func bucketConfig(name string, ttl time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Slack thread history",
		TTL:         ttl,
		History:     1,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}
}
