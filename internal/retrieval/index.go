package retrieval

import (
	"context"
	"fmt"
	"time"

	pc "github.com/pinecone-io/go-pinecone/pinecone"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// IndexAPI is the subset of the Pinecone control plane used by IndexAdmin.
type IndexAPI interface {
	ListIndexes(ctx context.Context) ([]*pc.Index, error)
	DeleteIndex(ctx context.Context, name string) error
	CreateServerlessIndex(ctx context.Context, req *pc.CreateServerlessIndexRequest) (*pc.Index, error)
	DescribeIndex(ctx context.Context, name string) (*pc.Index, error)
}

// IndexSpec describes the index to (re)create.
type IndexSpec struct {
	Name      string
	Dimension int
	Cloud     string
	Region    string
}

// IndexAdmin runs maintenance on the vector index.
type IndexAdmin struct {
	api          IndexAPI
	spec         IndexSpec
	pollInterval time.Duration
	logger       *logger.Logger
}

// IndexOption configures an IndexAdmin.
type IndexOption func(*IndexAdmin)

// WithPollInterval sets how often Rebuild checks whether the new index is ready.
func WithPollInterval(d time.Duration) IndexOption {
	return func(a *IndexAdmin) {
		a.pollInterval = d
	}
}

// NewPineconeAPI creates a control plane client.
func NewPineconeAPI(apiKey string) (*pc.Client, error) {
	client, err := pc.NewClient(pc.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	return client, nil
}

// NewIndexAdmin creates an index admin.
func NewIndexAdmin(api IndexAPI, spec IndexSpec, log *logger.Logger, opts ...IndexOption) *IndexAdmin {
	a := &IndexAdmin{
		api:          api,
		spec:         spec,
		pollInterval: 2 * time.Second,
		logger:       log.Component("index"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rebuild drops the index if it exists and creates it empty with a cosine metric. All
// stored vectors are lost. It returns once the new index reports ready.
func (a *IndexAdmin) Rebuild(ctx context.Context) error {
	indexes, err := a.api.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx == nil || idx.Name != a.spec.Name {
			continue
		}
		a.logger.Info("deleting index", zap.String("index", a.spec.Name))
		if err := a.api.DeleteIndex(ctx, a.spec.Name); err != nil {
			return fmt.Errorf("failed to delete index %s: %w", a.spec.Name, err)
		}
		break
	}

	a.logger.Info("creating index",
		zap.String("index", a.spec.Name),
		zap.Int("dimension", a.spec.Dimension),
		zap.String("cloud", a.spec.Cloud),
		zap.String("region", a.spec.Region),
	)
	_, err = a.api.CreateServerlessIndex(ctx, &pc.CreateServerlessIndexRequest{
		Name:      a.spec.Name,
		Dimension: int32(a.spec.Dimension),
		Metric:    pc.Cosine,
		Cloud:     pc.Cloud(a.spec.Cloud),
		Region:    a.spec.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", a.spec.Name, err)
	}

	return a.waitReady(ctx)
}

func (a *IndexAdmin) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		idx, err := a.api.DescribeIndex(ctx, a.spec.Name)
		if err != nil {
			return fmt.Errorf("failed to describe index %s: %w", a.spec.Name, err)
		}
		if idx != nil && idx.Status != nil && idx.Status.Ready {
			a.logger.Info("index ready", zap.String("index", a.spec.Name), zap.String("host", idx.Host))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
