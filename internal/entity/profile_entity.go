package entity

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	Id         uuid.UUID
	Email      string
	ApiKeyHash string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
