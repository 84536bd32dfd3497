package model

import (
	"time"

	"github.com/google/uuid"
)

type Job struct {
	Id        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ThreadId  uuid.UUID  `gorm:"type:uuid;not null;index"`
	AgentId   *uuid.UUID `gorm:"type:uuid;index"`
	ProfileId uuid.UUID  `gorm:"type:uuid;not null;index"`
	Input     string     `gorm:"type:text;not null"`
	Result    string     `gorm:"type:text"`
	Status    string     `gorm:"type:varchar(50);not null;default:'pending';index"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}
