package slackbot

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/semaphore"

	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/pkg/logger"
	"github.com/capitalize-ai/threadbot/pkg/metrics"
)

// MentionHandler processes a mention after it has been acknowledged.
type MentionHandler interface {
	Handle(ctx context.Context, ev model.MentionEvent) error
}

// SocketListener receives events over Slack socket mode. Each envelope is acknowledged
// before its mention is dispatched, and mentions run concurrently up to a fixed limit.
type SocketListener struct {
	client  *socketmode.Client
	handler MentionHandler
	sem     *semaphore.Weighted
	logger  *logger.Logger

	wg sync.WaitGroup
}

// NewSocketListener creates a listener that opens connections with api's app-level token.
func NewSocketListener(api *slack.Client, handler MentionHandler, maxConcurrent int, log *logger.Logger) *SocketListener {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	log = log.Component("socket")

	opts := []socketmode.Option{}
	if log.Core().Enabled(zapcore.DebugLevel) {
		if std, err := zap.NewStdLogAt(log.Logger, zapcore.DebugLevel); err == nil {
			opts = append(opts, socketmode.OptionDebug(true), socketmode.OptionLog(std))
		}
	}

	return &SocketListener{
		client:  socketmode.New(api, opts...),
		handler: handler,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		logger:  log,
	}
}

// Run consumes events until ctx is cancelled. The client reconnects on its own after
// disconnect requests and dropped connections; Run returns an error only when it gives up,
// as it does on invalid credentials. In-flight mentions finish before Run returns.
func (l *SocketListener) Run(ctx context.Context) error {
	defer l.wg.Wait()
	defer metrics.SocketConnected.Set(0)

	runErr := make(chan error, 1)
	go func() {
		runErr <- l.client.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("socket listener stopped")
			return nil
		case err := <-runErr:
			if ctx.Err() != nil {
				l.logger.Info("socket listener stopped")
				return nil
			}
			return fmt.Errorf("socket mode stopped: %w", err)
		case evt := <-l.client.Events:
			l.route(ctx, evt)
		}
	}
}

func (l *SocketListener) route(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.logger.Debug("socket connecting")
	case socketmode.EventTypeConnected:
		metrics.SocketConnected.Set(1)
		l.logger.Info("socket connected")
	case socketmode.EventTypeConnectionError:
		metrics.SocketConnected.Set(0)
		fields := []zap.Field{}
		if e, ok := evt.Data.(*slack.ConnectionErrorEvent); ok {
			fields = append(fields, zap.Int("attempt", e.Attempt), zap.Duration("backoff", e.Backoff), zap.Error(e.ErrorObj))
		}
		l.logger.Warn("socket connect failed", fields...)
	case socketmode.EventTypeInvalidAuth:
		metrics.SocketConnected.Set(0)
		l.logger.Error("socket mode rejected the app-level token")
	case socketmode.EventTypeErrorBadMessage, socketmode.EventTypeIncomingError:
		l.logger.Debug("ignoring malformed frame", zap.Any("error", evt.Data))
	case socketmode.EventTypeHello:
		l.logger.Debug("socket hello")
	case socketmode.EventTypeEventsAPI:
		l.client.Ack(*evt.Request)
		payload, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			l.logger.Warn("unexpected events payload", zap.String("envelope_id", evt.Request.EnvelopeID))
			return
		}
		l.dispatch(ctx, evt.Request, payload)
	default:
		// Interactive and slash command envelopes are not handled but still need an ack
		// or Slack redelivers them.
		if evt.Request != nil && evt.Request.EnvelopeID != "" {
			l.client.Ack(*evt.Request)
		}
	}
}

func (l *SocketListener) dispatch(ctx context.Context, req *socketmode.Request, ev slackevents.EventsAPIEvent) {
	mention, ok := MentionFromEvent(ev)
	if !ok {
		return
	}

	mention.Source = model.SourceSocket
	mention.IsRedelivery = req.RetryAttempt > 0
	mention.RetryReason = req.RetryReason
	if mention.EventID == "" {
		mention.EventID = req.EnvelopeID
	}
	if mention.EventID == "" {
		mention.EventID = uuid.NewString()
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		if err := l.sem.Acquire(ctx, 1); err != nil {
			l.logger.Warn("dropping mention on shutdown", zap.String("event_id", mention.EventID))
			return
		}
		defer l.sem.Release(1)

		// In-flight replies finish even when the listener is shutting down.
		if err := l.handler.Handle(context.WithoutCancel(ctx), mention); err != nil {
			l.logger.Error("mention failed",
				zap.String("event_id", mention.EventID),
				zap.String("channel", mention.ChannelID),
				zap.Error(err),
			)
		}
	}()
}
