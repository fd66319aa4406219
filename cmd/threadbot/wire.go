package main

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/config"
	"github.com/capitalize-ai/threadbot/internal/handler"
	"github.com/capitalize-ai/threadbot/internal/history"
	"github.com/capitalize-ai/threadbot/internal/llm"
	natsclient "github.com/capitalize-ai/threadbot/internal/nats"
	"github.com/capitalize-ai/threadbot/internal/retrieval"
	"github.com/capitalize-ai/threadbot/internal/service"
	"github.com/capitalize-ai/threadbot/internal/slackbot"
	"github.com/capitalize-ai/threadbot/pkg/logger"
	"github.com/capitalize-ai/threadbot/pkg/tracing"
)

// newInjector registers every component of the running service. Components are built
// lazily on first MustInvoke and shut down with the injector.
func newInjector(ctx context.Context, cfg *config.Config, log *logger.Logger) *do.Injector {
	di := do.New()
	do.ProvideValue(di, ctx)
	do.ProvideValue(di, cfg)
	do.ProvideValue(di, log)

	do.Provide(di, provideSlackAPI)
	do.Provide(di, provideSink)
	do.Provide(di, provideHistory)
	do.Provide(di, provideLLM)
	do.Provide(di, provideMentionService)
	do.Provide(di, provideThreadService)

	return di
}

func provideSlackAPI(di *do.Injector) (*slack.Client, error) {
	cfg := do.MustInvoke[*config.Config](di)
	return slackbot.NewAPI(slackbot.APIConfig{
		BotToken: cfg.Slack.BotToken,
		AppToken: cfg.Slack.AppToken,
		APIURL:   cfg.Slack.APIURL,
	}), nil
}

func provideSink(di *do.Injector) (*slackbot.Sink, error) {
	return slackbot.NewSink(do.MustInvoke[*slack.Client](di)), nil
}

// historyBackend bundles the store with the readiness check of whatever it talks to.
type historyBackend struct {
	store    service.HistoryStore
	pinger   handler.Pinger
	shutdown func() error
}

// Shutdown is called by the injector.
func (b *historyBackend) Shutdown() error {
	return b.shutdown()
}

func provideHistory(di *do.Injector) (*historyBackend, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)
	log := do.MustInvoke[*logger.Logger](di)

	switch cfg.History.Backend {
	case history.BackendNATS:
		client, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATS.URL,
			CAFile:   cfg.NATS.CAFile,
			CertFile: cfg.NATS.CertFile,
			KeyFile:  cfg.NATS.KeyFile,
			Token:    cfg.NATS.Token,
		}, log.Component("nats"))
		if err != nil {
			return nil, err
		}

		kv, err := client.EnsureBucket(ctx, cfg.History.Bucket, cfg.History.TTL)
		if err != nil {
			_ = client.Shutdown()
			return nil, err
		}
		return &historyBackend{store: history.NewNATSStore(kv), pinger: client, shutdown: client.Shutdown}, nil

	default:
		client, err := history.NewRedisClient(cfg.History.RedisURL)
		if err != nil {
			return nil, err
		}
		store := history.NewRedisStore(client, cfg.History.KeyPrefix, cfg.History.TTL)
		return &historyBackend{store: store, pinger: store, shutdown: store.Shutdown}, nil
	}
}

func provideLLM(di *do.Injector) (llm.Client, error) {
	cfg := do.MustInvoke[*config.Config](di)
	log := do.MustInvoke[*logger.Logger](di)

	return llm.NewClient(llm.Provider(cfg.LLM.Provider), llm.Options{
		OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.LLM.OpenAIBaseURL,
		AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
		Model:           cfg.LLM.Model,
		Logger:          log,
	})
}

func provideMentionService(di *do.Injector) (*service.MentionService, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)
	log := do.MustInvoke[*logger.Logger](di)
	api := do.MustInvoke[*slack.Client](di)

	authCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	botUserID, err := slackbot.BotUserID(authCtx, api)
	if err != nil {
		log.Warn("could not resolve bot user id, all mentions will be stripped", zap.Error(err))
	}

	var opts []service.MentionOption
	if cfg.RetrievalEnabled() {
		r, err := retrieval.New(retrieval.Config{
			PineconeAPIKey: cfg.Pinecone.APIKey,
			PineconeHost:   cfg.Pinecone.Host,
			Namespace:      cfg.Retrieval.Namespace,
			OpenAIAPIKey:   cfg.LLM.OpenAIAPIKey,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			TopK:           cfg.Retrieval.TopK,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create retriever: %w", err)
		}
		opts = append(opts, service.WithRetriever(r))
	}

	return service.NewMentionService(
		do.MustInvoke[*slackbot.Sink](di),
		do.MustInvoke[*historyBackend](di).store,
		do.MustInvoke[llm.Client](di),
		service.MentionConfig{
			Model:         cfg.LLM.Model,
			Temperature:   cfg.LLM.Temperature,
			MaxTokens:     cfg.LLM.MaxTokens,
			SystemPrompt:  cfg.Reply.SystemPrompt,
			Disclaimer:    cfg.Reply.Disclaimer,
			ErrorNotice:   cfg.Reply.ErrorNotice,
			FlushInterval: cfg.Reply.UpdateInterval,
			BotUserID:     botUserID,
		},
		log,
		opts...,
	), nil
}

func provideThreadService(di *do.Injector) (*service.ThreadService, error) {
	return service.NewThreadService(
		do.MustInvoke[*historyBackend](di).store,
		do.MustInvoke[*logger.Logger](di),
	), nil
}

// startTracing installs the OTLP exporter when enabled and returns its shutdown func.
func startTracing(ctx context.Context, cfg *config.Config, log *logger.Logger) func() {
	if !cfg.TracingEnabled {
		return func() {}
	}

	tp, err := tracing.InitTracer(ctx, "threadbot", cfg.TracingEndpoint)
	if err != nil {
		log.Warn("failed to initialize tracing", zap.Error(err))
		return func() {}
	}
	return func() {
		if err := tracing.Shutdown(context.Background(), tp); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}
}
