package slackbot_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/capitalize-ai/threadbot/internal/slackbot"
)

// fakeSlackAPI records Web API calls and answers them like Slack.
type fakeSlackAPI struct {
	mu     sync.Mutex
	calls  map[string][]url.Values
	failOn string
}

func (f *fakeSlackAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[len("/api/"):]

	f.mu.Lock()
	f.calls[method] = append(f.calls[method], r.PostForm)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if method == f.failOn {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
		return
	}

	switch method {
	case "chat.postMessage":
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": r.PostForm.Get("channel"), "ts": "1700000000.000900"})
	case "chat.update":
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": r.PostForm.Get("channel"), "ts": r.PostForm.Get("ts"), "text": r.PostForm.Get("text")})
	case "auth.test":
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "user_id": "UBOT", "team_id": "T1"})
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
	}
}

func (f *fakeSlackAPI) get(method string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

var _ = Describe("Sink", func() {
	var (
		ctx  context.Context
		fake *fakeSlackAPI
		sink *slackbot.Sink
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeSlackAPI{calls: make(map[string][]url.Values)}
		server := httptest.NewServer(fake)
		DeferCleanup(server.Close)

		api := slackbot.NewAPI(slackbot.APIConfig{BotToken: "xoxb-test", APIURL: server.URL + "/api/"})
		sink = slackbot.NewSink(api)
	})

	It("posts into the thread and returns the message ts", func() {
		ts, err := sink.PostMessage(ctx, "C1", "\n\nTyping...", "1700000000.000100")
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(Equal("1700000000.000900"))

		calls := fake.get("chat.postMessage")
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Get("channel")).To(Equal("C1"))
		Expect(calls[0].Get("thread_ts")).To(Equal("1700000000.000100"))
		Expect(calls[0].Get("text")).To(Equal("\n\nTyping..."))
	})

	It("updates text only for interim flushes", func() {
		Expect(sink.UpdateMessage(ctx, "C1", "1700000000.000900", "partial", nil)).To(Succeed())

		calls := fake.get("chat.update")
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Get("ts")).To(Equal("1700000000.000900"))
		Expect(calls[0].Get("text")).To(Equal("partial"))
		Expect(calls[0].Get("blocks")).To(BeEmpty())
	})

	It("sends blocks with the final update", func() {
		blocks := slackbot.FinalBlocks("done", "AI output may be wrong.")
		Expect(sink.UpdateMessage(ctx, "C1", "1700000000.000900", "done", blocks)).To(Succeed())

		calls := fake.get("chat.update")
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Get("blocks")).To(ContainSubstring(`"type":"divider"`))
		Expect(calls[0].Get("blocks")).To(ContainSubstring("AI output may be wrong."))
	})

	It("returns platform errors", func() {
		fake.failOn = "chat.postMessage"

		_, err := sink.PostMessage(ctx, "C404", "x", "")
		Expect(err).To(MatchError(ContainSubstring("channel_not_found")))
	})

	It("resolves the bot user id", func() {
		server := httptest.NewServer(fake)
		DeferCleanup(server.Close)

		id, err := slackbot.BotUserID(ctx, slackbot.NewAPI(slackbot.APIConfig{BotToken: "xoxb-test", APIURL: server.URL + "/api/"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal("UBOT"))
	})
})
