package model

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	ApiKeyHash string    `gorm:"type:text"` // bcrypt hash, never the raw key
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
