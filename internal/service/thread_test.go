package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/capitalize-ai/threadbot/internal/model"
	"github.com/capitalize-ai/threadbot/internal/service"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

var _ = Describe("ThreadService", func() {
	var (
		ctx     context.Context
		history *mockHistory
		svc     *service.ThreadService
	)

	BeforeEach(func() {
		ctx = context.Background()
		history = newMockHistory(nil)
		svc = service.NewThreadService(history, logger.NewNop())
	})

	It("returns stored turns", func() {
		history.turns["T1"] = []model.Turn{model.UserTurn("a"), model.AssistantTurn("b")}

		got, err := svc.Get(ctx, "T1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ThreadKey).To(Equal("T1"))
		Expect(got.Total).To(Equal(2))
		Expect(got.Turns[1]).To(Equal(model.AssistantTurn("b")))
	})

	It("reports unknown threads as not found", func() {
		_, err := svc.Get(ctx, "T404")
		Expect(err).To(MatchError(service.ErrThreadNotFound))
	})

	It("clears a thread", func() {
		history.turns["T1"] = []model.Turn{model.UserTurn("a")}

		Expect(svc.Clear(ctx, "T1")).To(Succeed())
		Expect(history.clears).To(Equal([]string{"T1"}))
		Expect(history.turns).NotTo(HaveKey("T1"))
	})
})
