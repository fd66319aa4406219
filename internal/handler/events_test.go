package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/capitalize-ai/threadbot/internal/handler"
	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

type fakeMentions struct {
	mu     sync.Mutex
	events []model.MentionEvent
	ctxErr []error
	err    error
	// release, when set, blocks Handle until closed.
	release chan struct{}
}

func (f *fakeMentions) Handle(ctx context.Context, ev model.MentionEvent) error {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.ctxErr = append(f.ctxErr, ctx.Err())
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return f.err
}

func (f *fakeMentions) received() []model.MentionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MentionEvent(nil), f.events...)
}

const appMentionBody = `{
	"token": "verification-token",
	"team_id": "T1",
	"api_app_id": "A1",
	"type": "event_callback",
	"event_id": "Ev1",
	"event_time": 1700000000,
	"event": {
		"type": "app_mention",
		"user": "U1",
		"text": "<@UBOT> what is the plan?",
		"ts": "1700000000.000100",
		"thread_ts": "1699999999.000100",
		"channel": "C1",
		"event_ts": "1700000000.000100"
	}
}`

var _ = Describe("EventsHandler", func() {
	var (
		mentions *fakeMentions
		h        *handler.EventsHandler
	)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.Events(rec, req)
		return rec
	}

	BeforeEach(func() {
		mentions = &fakeMentions{}
		h = handler.NewEventsHandler(mentions, logger.NewNop())
	})

	It("answers url verification with the challenge", func() {
		rec := post(`{"token":"t","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/plain"))
		Expect(rec.Body.String()).To(Equal("3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"))
	})

	It("hands mentions to the service", func() {
		rec := post(appMentionBody)
		h.Wait()

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(mentions.received()).To(HaveLen(1))

		ev := mentions.received()[0]
		Expect(ev.EventID).To(Equal("Ev1"))
		Expect(ev.ChannelID).To(Equal("C1"))
		Expect(ev.ThreadTS).To(Equal("1699999999.000100"))
		Expect(ev.Source).To(Equal(model.SourceHTTP))
		Expect(ev.IsRedelivery).To(BeFalse())
		Expect(mentions.ctxErr[0]).NotTo(HaveOccurred())
	})

	It("acknowledges within Slack's deadline while the reply is still running", func() {
		mentions.release = make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(h.Events))
		DeferCleanup(server.Close)

		client := &http.Client{Timeout: 3 * time.Second}
		resp, err := client.Post(server.URL, "application/json", strings.NewReader(appMentionBody))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		Eventually(mentions.received).Should(HaveLen(1))
		close(mentions.release)
		h.Wait()
	})

	It("still acknowledges when the mention fails", func() {
		mentions.err = errors.New("llm unavailable")

		rec := post(appMentionBody)
		h.Wait()
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("acknowledges callbacks that are not mentions", func() {
		rec := post(`{"type":"event_callback","event_id":"Ev2","event":{"type":"member_joined_channel","user":"U1","channel":"C1"}}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(mentions.received()).To(BeEmpty())
	})

	It("rejects malformed bodies", func() {
		rec := post(`{not json`)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("invalid_event"))
	})
})
