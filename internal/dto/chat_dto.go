package dto

import (
	"time"

	"github.com/google/uuid"
)

// InboundMessage is one client frame on the chat websocket. Type selects
// which of the remaining fields matter.
type InboundMessage struct {
	Type     string `json:"type"`
	ThreadId string `json:"thread_id,omitempty"`
	AgentId  string `json:"agent_id,omitempty"`
	Content  string `json:"content,omitempty"`
}

// OutboundMessage is the single wire shape for everything the server pushes:
// live token/tool/step frames, history replay, pings and errors. Type
// discriminates; unused fields are omitted.
type OutboundMessage struct {
	Type         string     `json:"type"`
	Status       string     `json:"status,omitempty"`
	Content      string     `json:"content,omitempty"`
	Message      string     `json:"message,omitempty"` // error text
	Thought      string     `json:"thought,omitempty"`
	Tool         string     `json:"tool,omitempty"`
	ToolInput    string     `json:"tool_input,omitempty"`
	ToolOutput   string     `json:"tool_output,omitempty"`
	PlanningOnly bool       `json:"planning_only,omitempty"`
	Role         string     `json:"role,omitempty"`
	ThreadId     string     `json:"thread_id,omitempty"`
	AgentId      string     `json:"agent_id,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

func NewPingMessage() *OutboundMessage {
	return &OutboundMessage{Type: "ping"}
}

func NewErrorMessage(text string) *OutboundMessage {
	return &OutboundMessage{Type: "error", Message: text}
}

// ChatRequest is the validated form of an inbound "message" frame.
type ChatRequest struct {
	ThreadId  uuid.UUID
	AgentId   *uuid.UUID
	ProfileId uuid.UUID
	SessionId string
	Content   string
}
