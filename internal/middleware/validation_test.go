package middleware_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/capitalize-ai/threadbot/internal/middleware"
)

var _ = DescribeTable("ValidateThreadKey",
	func(key string, valid bool) {
		err := middleware.ValidateThreadKey(key)
		if valid {
			Expect(err).NotTo(HaveOccurred())
		} else {
			Expect(err).To(HaveOccurred())
		}
	},
	Entry("message ts", "1700000000.000100", true),
	Entry("short fraction", "1700000000.1", true),
	Entry("empty", "", false),
	Entry("no fraction", "1700000000", false),
	Entry("path traversal", "../1700000000.000100", false),
	Entry("letters", "abc.def", false),
)
