package history

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("isRevisionConflict", func() {
	DescribeTable("classifies append errors",
		func(err error, expected bool) {
			Expect(isRevisionConflict(err)).To(Equal(expected))
		},
		Entry("nil", nil, false),
		Entry("key created concurrently", jetstream.ErrKeyExists, true),
		Entry("wrapped key exists", fmt.Errorf("create: %w", jetstream.ErrKeyExists), true),
		Entry("wrong last sequence", &jetstream.APIError{ErrorCode: jetstream.JSErrCodeStreamWrongLastSequence}, true),
		Entry("other api error", &jetstream.APIError{ErrorCode: jetstream.JSErrCodeStreamNotFound}, false),
		Entry("transport error", errors.New("timeout"), false),
	)
})
