package slackbot

import (
	"unicode/utf8"

	"github.com/slack-go/slack"
)

// maxSectionText is Slack's limit on the text of a section block.
const maxSectionText = 3000

// FinalBlocks renders a completed answer: the text, a divider and the disclaimer in small print.
func FinalBlocks(text, disclaimer string) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, sectionText(text), false, false),
			nil, nil,
		),
		slack.NewDividerBlock(),
	}
	if disclaimer != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, disclaimer, false, false),
		))
	}
	return blocks
}

// sectionText clips text to what a section block accepts. Empty text is replaced by a
// single space because Slack rejects empty section text.
func sectionText(text string) string {
	if text == "" {
		return " "
	}
	if utf8.RuneCountInString(text) <= maxSectionText {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxSectionText-1]) + "…"
}
