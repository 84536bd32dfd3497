package entity

import (
	"time"

	"github.com/google/uuid"
)

// Job is the server-side record for one user chat message, from acceptance
// to persisted result.
type Job struct {
	Id        uuid.UUID
	ThreadId  uuid.UUID
	AgentId   *uuid.UUID
	ProfileId uuid.UUID
	Input     string
	Result    string
	Status    string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
