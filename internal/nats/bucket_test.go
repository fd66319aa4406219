package nats

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/capitalize-ai/threadbot/pkg/logger"
)

type stubStatus struct {
	jetstream.KeyValueStatus
	ttl time.Duration
}

func (s stubStatus) TTL() time.Duration { return s.ttl }

type stubBucket struct {
	jetstream.KeyValue
	ttl time.Duration
}

func (b *stubBucket) Status(context.Context) (jetstream.KeyValueStatus, error) {
	return stubStatus{ttl: b.ttl}, nil
}

// stubBuckets records bucket management calls against at most one bucket.
type stubBuckets struct {
	existing *stubBucket
	lookErr  error
	created  []jetstream.KeyValueConfig
	updated  []jetstream.KeyValueConfig
}

func (s *stubBuckets) KeyValue(context.Context, string) (jetstream.KeyValue, error) {
	if s.lookErr != nil {
		return nil, s.lookErr
	}
	if s.existing == nil {
		return nil, jetstream.ErrBucketNotFound
	}
	return s.existing, nil
}

func (s *stubBuckets) CreateKeyValue(_ context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	s.created = append(s.created, cfg)
	return &stubBucket{ttl: cfg.TTL}, nil
}

func (s *stubBuckets) UpdateKeyValue(_ context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	s.updated = append(s.updated, cfg)
	return &stubBucket{ttl: cfg.TTL}, nil
}

var _ = Describe("ensureBucket", func() {
	const ttl = 24 * time.Hour

	var (
		ctx     context.Context
		buckets *stubBuckets
	)

	BeforeEach(func() {
		ctx = context.Background()
		buckets = &stubBuckets{}
	})

	It("creates a missing bucket with the configured ttl", func() {
		_, err := ensureBucket(ctx, buckets, "THREADBOT_HISTORY", ttl, logger.NewNop())

		Expect(err).NotTo(HaveOccurred())
		Expect(buckets.created).To(HaveLen(1))
		Expect(buckets.created[0].Bucket).To(Equal("THREADBOT_HISTORY"))
		Expect(buckets.created[0].TTL).To(Equal(ttl))
		Expect(buckets.updated).To(BeEmpty())
	})

	It("reuses a bucket whose ttl matches", func() {
		buckets.existing = &stubBucket{ttl: ttl}

		kv, err := ensureBucket(ctx, buckets, "THREADBOT_HISTORY", ttl, logger.NewNop())

		Expect(err).NotTo(HaveOccurred())
		Expect(kv).To(BeIdenticalTo(buckets.existing))
		Expect(buckets.created).To(BeEmpty())
		Expect(buckets.updated).To(BeEmpty())
	})

	It("updates a bucket created with another ttl", func() {
		buckets.existing = &stubBucket{ttl: time.Hour}

		_, err := ensureBucket(ctx, buckets, "THREADBOT_HISTORY", ttl, logger.NewNop())

		Expect(err).NotTo(HaveOccurred())
		Expect(buckets.updated).To(HaveLen(1))
		Expect(buckets.updated[0].TTL).To(Equal(ttl))
		Expect(buckets.updated[0].History).To(Equal(uint8(1)))
	})

	It("reports lookup failures", func() {
		buckets.lookErr = errors.New("jetstream not enabled")

		_, err := ensureBucket(ctx, buckets, "THREADBOT_HISTORY", ttl, logger.NewNop())
		Expect(err).To(MatchError(ContainSubstring("jetstream not enabled")))
		Expect(buckets.created).To(BeEmpty())
	})
})
