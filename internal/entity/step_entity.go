package entity

import (
	"time"

	"github.com/google/uuid"
)

// Step is one persisted unit of workflow output for a job: buffered token
// text, a tool invocation, a planning step, or the final result.
type Step struct {
	Id         uuid.UUID
	JobId      uuid.UUID
	ThreadId   uuid.UUID
	AgentId    *uuid.UUID
	ProfileId  uuid.UUID
	Role       string
	Content    string
	Status     string
	Thought    string
	Tool       string
	ToolInput  string
	ToolOutput string
	CreatedAt  time.Time
}
