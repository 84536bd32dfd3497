package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateThreadRequest struct {
	// Title may be empty; the consumer titles the thread from its first
	// completed job.
	Title string `json:"title" validate:"max=500"`
}

type CreateThreadResponse struct {
	Id uuid.UUID `json:"id"`
}

type ThreadResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
