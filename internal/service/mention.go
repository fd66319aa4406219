package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/llm"
	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/pkg/logger"
	"github.com/capitalize-ai/threadbot/pkg/metrics"
	"github.com/capitalize-ai/threadbot/pkg/tracing"
)

// MentionConfig tunes a MentionService.
type MentionConfig struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	SystemPrompt  string
	Disclaimer    string
	ErrorNotice   string
	FlushInterval time.Duration
	// BotUserID is the bot's own user id, used to strip only its mention. May be empty.
	BotUserID string
}

// MentionService answers app mentions by streaming a completion into a thread reply.
type MentionService struct {
	sink      ReplySink
	history   HistoryStore
	llmClient llm.Client
	retriever Retriever
	cfg       MentionConfig
	mention   *regexp.Regexp
	clock     clock.Clock
	logger    *logger.Logger
}

// MentionOption configures a MentionService.
type MentionOption func(*MentionService)

// WithRetriever enables retrieval-augmented prompts.
func WithRetriever(r Retriever) MentionOption {
	return func(s *MentionService) {
		s.retriever = r
	}
}

// WithServiceClock sets the clock handed to each reply's throttler.
func WithServiceClock(c clock.Clock) MentionOption {
	return func(s *MentionService) {
		s.clock = c
	}
}

// NewMentionService creates a new mention service.
func NewMentionService(
	sink ReplySink,
	history HistoryStore,
	llmClient llm.Client,
	cfg MentionConfig,
	log *logger.Logger,
	opts ...MentionOption,
) *MentionService {
	s := &MentionService{
		sink:      sink,
		history:   history,
		llmClient: llmClient,
		cfg:       cfg,
		mention:   MentionPattern(cfg.BotUserID),
		clock:     clock.New(),
		logger:    log.Component("mention"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetrievalEnabled reports whether prompts include retrieved context.
func (s *MentionService) RetrievalEnabled() bool {
	return s.retriever != nil
}

// Handle processes one mention. Redelivered events return immediately without side effects.
func (s *MentionService) Handle(ctx context.Context, ev model.MentionEvent) error {
	key := ThreadKey(ev)
	log := s.logger.WithMention(ev.EventID, ev.ChannelID, key)

	if ev.IsRedelivery {
		log.Info("SKIP redelivered event", zap.String("retry_reason", ev.RetryReason))
		metrics.RedeliveriesSkipped.WithLabelValues(string(ev.Source)).Inc()
		return nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "mention.handle", trace.WithAttributes(
		attribute.String("slack.channel", ev.ChannelID),
		attribute.String("slack.thread_key", key),
		attribute.String("slack.event_id", ev.EventID),
		attribute.Bool("retrieval", s.retriever != nil),
	))
	defer span.End()

	if err := s.handle(ctx, ev, key, log); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.MentionsTotal.WithLabelValues(string(ev.Source), "error").Inc()
		return err
	}

	metrics.MentionsTotal.WithLabelValues(string(ev.Source), "success").Inc()
	return nil
}

func (s *MentionService) handle(ctx context.Context, ev model.MentionEvent, key string, log *logger.Logger) error {
	message := SanitizeMention(ev.Text, s.mention)

	handle, err := s.sink.PostMessage(ctx, ev.ChannelID, TypingIndicator, ev.TS)
	if err != nil {
		return fmt.Errorf("failed to post placeholder: %w", err)
	}

	turns, err := s.history.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	var passages []Passage
	if s.retriever != nil {
		query := message
		if len(turns) > 0 {
			query = s.standaloneQuestion(ctx, turns, message, log)
		}
		passages, err = s.retriever.Retrieve(ctx, query)
		if err != nil {
			log.Warn("retrieval failed, answering without context", zap.Error(err))
			passages = nil
		}
	}

	prompt := BuildPrompt(s.cfg.SystemPrompt, passages, turns, message)
	log.Debug("prompt built",
		zap.String("prompt", describePrompt(prompt)),
		zap.Int("passages", len(passages)),
	)

	if err := s.history.AppendUser(ctx, key, message); err != nil {
		return fmt.Errorf("failed to record user turn: %w", err)
	}

	throttler := NewThrottler(s.sink, ev.ChannelID, handle,
		WithClock(s.clock),
		WithInterval(s.cfg.FlushInterval),
		WithDisclaimer(s.cfg.Disclaimer),
	)

	start := time.Now()
	resp, err := s.llmClient.CompleteStream(ctx, &llm.CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    ToChatMessages(prompt),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Stream:      true,
	}, func(token string, _ int) error {
		return throttler.OnFragment(ctx, token)
	})
	if err != nil {
		metrics.RecordLLMStream(s.llmClient.Name(), "error", time.Since(start).Seconds(), 0, 0)
		log.Error("completion failed",
			zap.Error(err),
			zap.Int("flushes", throttler.Flushes()),
		)
		s.notifyFailure(ctx, ev.ChannelID, handle, throttler, log)
		return fmt.Errorf("completion failed: %w", err)
	}
	metrics.RecordLLMStream(s.llmClient.Name(), "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	if err := throttler.OnComplete(ctx); err != nil {
		return err
	}

	if err := s.history.AppendAssistant(ctx, key, throttler.Text()); err != nil {
		return fmt.Errorf("failed to record assistant turn: %w", err)
	}

	log.Info("mention answered",
		zap.Int("flushes", throttler.Flushes()),
		zap.Int("chars", len(throttler.Text())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// standaloneQuestion rewrites a follow-up into a question that can be searched without the
// thread. The message is used unchanged when the rewrite fails or comes back empty.
func (s *MentionService) standaloneQuestion(ctx context.Context, turns []model.Turn, message string, log *logger.Logger) string {
	resp, err := s.llmClient.CompleteStream(ctx, &llm.CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    ToChatMessages(CondensePrompt(turns, message)),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}, func(string, int) error { return nil })
	if err != nil {
		log.Warn("failed to condense question, searching with the message", zap.Error(err))
		return message
	}

	query := strings.TrimSpace(resp.Content)
	if query == "" {
		return message
	}
	log.Debug("condensed question", zap.String("query", query))
	return query
}

// notifyFailure replaces the placeholder with whatever was generated plus a visible error
// notice. Failures here are only logged.
func (s *MentionService) notifyFailure(ctx context.Context, channel, handle string, t *Throttler, log *logger.Logger) {
	if s.cfg.ErrorNotice == "" {
		return
	}
	text := s.cfg.ErrorNotice
	if partial := t.Text(); partial != "" {
		text = partial + "\n\n" + s.cfg.ErrorNotice
	}
	if err := s.sink.UpdateMessage(ctx, channel, handle, text, nil); err != nil {
		log.Warn("failed to post error notice", zap.Error(err))
	}
}
