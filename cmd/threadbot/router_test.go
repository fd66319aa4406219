package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/capitalize-ai/threadbot/internal/config"
	"github.com/capitalize-ai/threadbot/internal/handler"
	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/internal/service"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

type countingMentions struct {
	mu       sync.Mutex
	eventIDs []string
}

func (c *countingMentions) Handle(_ context.Context, ev model.MentionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventIDs = append(c.eventIDs, ev.EventID)
	return nil
}

func (c *countingMentions) handled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.eventIDs...)
}

type emptyHistory struct{}

func (emptyHistory) Get(context.Context, string) ([]model.Turn, error) { return nil, nil }
func (emptyHistory) AppendUser(context.Context, string, string) error { return nil }
func (emptyHistory) AppendAssistant(context.Context, string, string) error { return nil }
func (emptyHistory) Clear(context.Context, string) error { return nil }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

const testSigningSecret = "secret"

func mentionBody(eventID, ts string) string {
	return fmt.Sprintf(`{"type":"event_callback","event_id":%q,"event":{"type":"app_mention","user":"U1","text":"<@UBOT> hi","ts":%q,"channel":"C1","event_ts":%q}}`,
		eventID, ts, ts)
}

// signedEvent builds a request signed the way Slack signs Events API deliveries.
func signedEvent(body string) *http.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	mac.Write([]byte("v0:" + ts + ":" + body))

	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.10:443"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

var _ = Describe("newRouter", func() {
	var (
		cfg      *config.Config
		mentions *countingMentions
		events   *handler.EventsHandler
		router   http.Handler
	)

	build := func(admin *handler.AdminHandler) {
		log := logger.NewNop()
		events = handler.NewEventsHandler(mentions, log)
		router = newRouter(cfg, log, events, admin, handler.NewHealthHandler(okPinger{}))
	}

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		cfg = &config.Config{
			Server: config.ServerConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute},
			Slack:  config.SlackConfig{SigningSecret: testSigningSecret},
			Admin:  config.AdminConfig{JWTSecret: "admin-secret"},
		}
		mentions = &countingMentions{}
		build(nil)
	})

	It("serves the health checks and metrics", func() {
		Expect(serve(httptest.NewRequest(http.MethodGet, "/health", nil)).Code).To(Equal(http.StatusOK))
		Expect(serve(httptest.NewRequest(http.MethodGet, "/ready", nil)).Code).To(Equal(http.StatusOK))

		rec := serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("threadbot_"))
	})

	It("accepts a burst of signed events from one address without throttling", func() {
		var codes []int
		for i := 1; i <= 5; i++ {
			body := mentionBody(fmt.Sprintf("Ev%d", i), fmt.Sprintf("1700000000.00010%d", i))
			codes = append(codes, serve(signedEvent(body)).Code)
		}
		events.Wait()

		Expect(codes).To(HaveEach(http.StatusOK))
		Expect(mentions.handled()).To(ConsistOf("Ev1", "Ev2", "Ev3", "Ev4", "Ev5"))
	})

	It("acknowledges Slack retries without handling them again", func() {
		body := mentionBody("Ev1", "1700000000.000101")
		Expect(serve(signedEvent(body)).Code).To(Equal(http.StatusOK))

		retry := signedEvent(body)
		retry.Header.Set("X-Slack-Retry-Num", "1")
		retry.Header.Set("X-Slack-Retry-Reason", "http_timeout")
		Expect(serve(retry).Code).To(Equal(http.StatusOK))

		events.Wait()
		Expect(mentions.handled()).To(Equal([]string{"Ev1"}))
	})

	It("rejects unsigned events", func() {
		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{}`))

		Expect(serve(req).Code).To(Equal(http.StatusUnauthorized))
		events.Wait()
		Expect(mentions.handled()).To(BeEmpty())
	})

	It("mounts the admin routes only when configured", func() {
		Expect(serve(httptest.NewRequest(http.MethodGet, "/admin/history/1700000000.000100", nil)).Code).
			To(Equal(http.StatusNotFound))

		build(handler.NewAdminHandler(service.NewThreadService(emptyHistory{}, logger.NewNop()), logger.NewNop()))
		Expect(serve(httptest.NewRequest(http.MethodGet, "/admin/history/1700000000.000100", nil)).Code).
			To(Equal(http.StatusUnauthorized))
	})
})
