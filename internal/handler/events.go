package handler

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/middleware"
	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/internal/slackbot"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

// EventsHandler serves the Slack Events API request URL. Mentions are acknowledged with 200
// before any work starts and are answered in the background.
type EventsHandler struct {
	mentions slackbot.MentionHandler
	logger   *logger.Logger

	wg sync.WaitGroup
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(mentions slackbot.MentionHandler, log *logger.Logger) *EventsHandler {
	return &EventsHandler{
		mentions: mentions,
		logger:   log.Component("events"),
	}
}

// Events handles POST /slack/events
func (h *EventsHandler) Events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to read body")
		return
	}

	ev, err := slackbot.ParseEventsAPI(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	switch ev.Type {
	case slackevents.URLVerification:
		challenge, ok := ev.Data.(*slackevents.EventsAPIURLVerificationEvent)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_event", "malformed url_verification")
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge.Challenge))
		return

	case slackevents.CallbackEvent:
		mention, ok := slackbot.MentionFromEvent(ev)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		mention.Source = model.SourceHTTP
		h.logger.Debug("mention received",
			zap.String("event_id", mention.EventID),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)

		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		// The request ends as soon as this returns; the reply must outlive it.
		ctx := context.WithoutCancel(r.Context())
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.handle(ctx, mention)
		}()
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *EventsHandler) handle(ctx context.Context, mention model.MentionEvent) {
	if err := h.mentions.Handle(ctx, mention); err != nil {
		h.logger.Error("mention failed",
			zap.String("event_id", mention.EventID),
			zap.String("channel", mention.ChannelID),
			zap.Error(err),
		)
	}
}

// Wait blocks until in-flight mentions have finished.
func (h *EventsHandler) Wait() {
	h.wg.Wait()
}
