package model

import (
	"time"

	"github.com/google/uuid"
)

type Step struct {
	Id         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	JobId      uuid.UUID  `gorm:"type:uuid;not null;index"`
	ThreadId   uuid.UUID  `gorm:"type:uuid;not null;index"`
	AgentId    *uuid.UUID `gorm:"type:uuid"`
	ProfileId  uuid.UUID  `gorm:"type:uuid;not null"`
	Role       string     `gorm:"type:varchar(50);not null"`
	Content    string     `gorm:"type:text"`
	Status     string     `gorm:"type:varchar(50);not null"`
	Thought    string     `gorm:"type:text"`
	Tool       string     `gorm:"type:varchar(200)"`
	ToolInput  string     `gorm:"type:text"`
	ToolOutput string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
}

func (Step) TableName() string {
	return "steps"
}
