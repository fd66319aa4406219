package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/capitalize-ai/threadbot/internal/slackbot"
	"github.com/capitalize-ai/threadbot/pkg/metrics"
)

// TypingIndicator is appended to interim updates and used as the placeholder text.
const TypingIndicator = "\n\nTyping..."

// DefaultFlushInterval is the initial minimum gap between interim updates.
const DefaultFlushInterval = time.Second

// ErrAlreadyCompleted is returned by OnComplete after the final update was issued.
var ErrAlreadyCompleted = errors.New("reply already completed")

// Throttler accumulates streamed fragments for one placeholder message and mirrors them
// to the sink at a decaying rate. Each flush pushes the next allowed flush further out once
// flushes/10 exceeds the interval in seconds, so the number of updates grows logarithmically
// with the length of the answer.
//
// A Throttler belongs to a single reply and must not be used concurrently.
type Throttler struct {
	sink    ReplySink
	channel string
	handle  string

	clock      clock.Clock
	disclaimer string

	text        strings.Builder
	lastFlushAt time.Time
	interval    time.Duration
	flushes     int
	completed   bool
}

// ThrottlerOption configures a Throttler.
type ThrottlerOption func(*Throttler)

// WithClock sets the time source.
func WithClock(c clock.Clock) ThrottlerOption {
	return func(t *Throttler) {
		t.clock = c
	}
}

// WithInterval sets the initial flush interval.
func WithInterval(d time.Duration) ThrottlerOption {
	return func(t *Throttler) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithDisclaimer sets the small-print line of the final update.
func WithDisclaimer(s string) ThrottlerOption {
	return func(t *Throttler) {
		t.disclaimer = s
	}
}

// NewThrottler creates a throttler bound to the message identified by channel and handle.
func NewThrottler(sink ReplySink, channel, handle string, opts ...ThrottlerOption) *Throttler {
	t := &Throttler{
		sink:     sink,
		channel:  channel,
		handle:   handle,
		clock:    clock.New(),
		interval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastFlushAt = t.clock.Now()
	return t
}

// OnFragment appends a fragment and flushes the accumulated text if the interval has elapsed.
func (t *Throttler) OnFragment(ctx context.Context, fragment string) error {
	if t.completed {
		return ErrAlreadyCompleted
	}
	t.text.WriteString(fragment)

	now := t.clock.Now()
	if now.Sub(t.lastFlushAt) <= t.interval {
		return nil
	}

	if err := t.sink.UpdateMessage(ctx, t.channel, t.handle, t.text.String()+TypingIndicator, nil); err != nil {
		return fmt.Errorf("failed to flush reply: %w", err)
	}
	t.lastFlushAt = now
	t.flushes++
	metrics.ReplyFlushes.Inc()

	if float64(t.flushes)/10 > t.interval.Seconds() {
		t.interval *= 2
	}
	return nil
}

// OnComplete writes the full text with the disclaimer blocks. It runs regardless of the
// interval and only once.
func (t *Throttler) OnComplete(ctx context.Context) error {
	if t.completed {
		return ErrAlreadyCompleted
	}
	t.completed = true

	text := t.text.String()
	if err := t.sink.UpdateMessage(ctx, t.channel, t.handle, text, slackbot.FinalBlocks(text, t.disclaimer)); err != nil {
		return fmt.Errorf("failed to finalize reply: %w", err)
	}
	metrics.ReplyFinalized.Inc()
	return nil
}

// Text returns everything accumulated so far.
func (t *Throttler) Text() string {
	return t.text.String()
}

// Flushes returns the number of interim updates issued.
func (t *Throttler) Flushes() int {
	return t.flushes
}

// Interval returns the current minimum gap between interim updates.
func (t *Throttler) Interval() time.Duration {
	return t.interval
}

// Completed reports whether the final update was attempted.
func (t *Throttler) Completed() bool {
	return t.completed
}
