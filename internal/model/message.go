// Package model defines data structures shared across threadbot.
package model

// Role represents the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one entry of a thread's history.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UserTurn returns a user turn with the given text.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AssistantTurn returns an assistant turn with the given text.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}

// SystemTurn returns a system turn with the given text.
func SystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Text: text}
}
