package slackbot_test

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slack-go/slack"

	"github.com/capitalize-ai/threadbot/internal/slackbot"
)

var _ = Describe("FinalBlocks", func() {
	It("renders text, divider and disclaimer", func() {
		blocks := slackbot.FinalBlocks("*answer*", "AI output may be wrong.")
		Expect(blocks).To(HaveLen(3))

		section, ok := blocks[0].(*slack.SectionBlock)
		Expect(ok).To(BeTrue())
		Expect(section.Text.Type).To(Equal(slack.MarkdownType))
		Expect(section.Text.Text).To(Equal("*answer*"))

		Expect(blocks[1].BlockType()).To(Equal(slack.MBTDivider))

		context, ok := blocks[2].(*slack.ContextBlock)
		Expect(ok).To(BeTrue())
		Expect(context.ContextElements.Elements).To(HaveLen(1))
		text, ok := context.ContextElements.Elements[0].(*slack.TextBlockObject)
		Expect(ok).To(BeTrue())
		Expect(text.Text).To(Equal("AI output may be wrong."))
	})

	It("omits the context line without a disclaimer", func() {
		Expect(slackbot.FinalBlocks("a", "")).To(HaveLen(2))
	})

	It("keeps the section valid for empty text", func() {
		section := slackbot.FinalBlocks("", "d")[0].(*slack.SectionBlock)
		Expect(section.Text.Text).NotTo(BeEmpty())
	})

	It("clips long answers to the section limit", func() {
		section := slackbot.FinalBlocks(strings.Repeat("é", 5000), "d")[0].(*slack.SectionBlock)
		Expect(utf8.RuneCountInString(section.Text.Text)).To(Equal(3000))
		Expect(section.Text.Text).To(HaveSuffix("…"))
	})
})
