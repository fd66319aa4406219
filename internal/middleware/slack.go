package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/pkg/logger"
	"github.com/capitalize-ai/threadbot/pkg/metrics"
)

const (
	// HeaderSlackRetryNum is set by Slack on redelivered events.
	HeaderSlackRetryNum = "X-Slack-Retry-Num"
	// HeaderSlackRetryReason explains a redelivery.
	HeaderSlackRetryReason = "X-Slack-Retry-Reason"

	maxEventBodyBytes = 1 << 20
)

// SkipSlackRetries answers redelivered events with 200 before anything else runs.
func SkipSlackRetries(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if retry := r.Header.Get(HeaderSlackRetryNum); retry != "" {
				log.Info("SKIP redelivered event",
					zap.String("retry_num", retry),
					zap.String("retry_reason", r.Header.Get(HeaderSlackRetryReason)),
				)
				metrics.RedeliveriesSkipped.WithLabelValues("http").Inc()
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VerifySlackSignature rejects requests whose X-Slack-Signature does not match the body.
// The body is buffered and restored for the next handler.
func VerifySlackSignature(signingSecret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "failed to read body")
				return
			}

			verifier, err := slack.NewSecretsVerifier(r.Header, signingSecret)
			if err != nil {
				log.Warn("slack signature headers invalid", zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, "invalid signature")
				return
			}
			if _, err := verifier.Write(body); err != nil {
				writeJSONError(w, http.StatusInternalServerError, "failed to verify signature")
				return
			}
			if err := verifier.Ensure(); err != nil {
				log.Warn("slack signature mismatch", zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
