package agent

import (
	"github.com/harun/toolbot/pkg/toolexecutor"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of a conversation. Messages are never modified once
// appended to a history.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}

// ToolCall records one tool invocation made while producing a reply
type ToolCall struct {
	ID     string                  `json:"id"`
	Name   string                  `json:"name"`
	Args   map[string]interface{}  `json:"args"`
	Result toolexecutor.ToolResult `json:"result"`
}

// Turn outcomes reported to the Observer.
const (
	OutcomeReplied      = "replied"
	OutcomeToolReplied  = "tool_replied"
	OutcomeInvalidInput = "invalid_input"
	OutcomeInternal     = "internal_error"
)

func validRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
