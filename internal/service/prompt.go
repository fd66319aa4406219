package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/elliotchance/pie/v2"

	"github.com/capitalize-ai/threadbot/internal/llm"
	"github.com/capitalize-ai/threadbot/internal/model"
)

var anyMention = regexp.MustCompile(`<@[^>]+>`)

// MentionPattern matches the markup SanitizeMention removes: the bot's own mention, with or
// without a display name, when botUserID is known, and every user mention otherwise.
func MentionPattern(botUserID string) *regexp.Regexp {
	if botUserID == "" {
		return anyMention
	}
	return regexp.MustCompile(`<@` + regexp.QuoteMeta(botUserID) + `(\|[^>]*)?>`)
}

// SanitizeMention removes the markup matched by pattern and trims the result.
func SanitizeMention(text string, pattern *regexp.Regexp) string {
	return strings.TrimSpace(pattern.ReplaceAllString(text, ""))
}

// ThreadKey returns the key that addresses a thread's history: the thread root when the
// mention is a reply, the mention itself otherwise.
func ThreadKey(ev model.MentionEvent) string {
	if ev.IsReply() {
		return ev.ThreadTS
	}
	return ev.TS
}

// ContextInstruction introduces retrieved passages in the prompt.
const ContextInstruction = "Use the following context to answer the question. If the context does not help, answer from general knowledge.\n\n"

// BuildPrompt assembles the messages sent to the model: the system instruction, any
// retrieved context, prior turns oldest first and finally the new user message.
func BuildPrompt(system string, passages []Passage, history []model.Turn, message string) []model.Turn {
	prompt := make([]model.Turn, 0, len(history)+3)
	if system != "" {
		prompt = append(prompt, model.SystemTurn(system))
	}

	if len(passages) > 0 {
		contents := pie.Map(passages, func(p Passage) string {
			return p.Content
		})
		prompt = append(prompt, model.SystemTurn(ContextInstruction+strings.Join(contents, "\n---\n")))
	}

	prompt = append(prompt, history...)
	return append(prompt, model.UserTurn(message))
}

// condenseTemplate asks the model to turn a follow-up into a question that stands on its own.
const condenseTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`

// CondensePrompt builds the single-turn prompt that rewrites message into a standalone
// question using the thread's prior turns.
func CondensePrompt(history []model.Turn, message string) []model.Turn {
	lines := pie.Map(history, func(t model.Turn) string {
		if t.Role == model.RoleAssistant {
			return "Assistant: " + t.Text
		}
		return "Human: " + t.Text
	})
	return []model.Turn{model.UserTurn(fmt.Sprintf(condenseTemplate, strings.Join(lines, "\n"), message))}
}

// ToChatMessages converts turns to the completion client's message type.
func ToChatMessages(turns []model.Turn) []llm.ChatMessage {
	return pie.Map(turns, func(t model.Turn) llm.ChatMessage {
		return llm.ChatMessage{Role: string(t.Role), Content: t.Text}
	})
}

// describePrompt summarises a prompt for debug logs.
func describePrompt(turns []model.Turn) string {
	roles := pie.Map(turns, func(t model.Turn) string {
		return string(t.Role)
	})
	return fmt.Sprintf("%d turns [%s]", len(turns), strings.Join(roles, ","))
}
