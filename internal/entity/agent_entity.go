package entity

import (
	"time"

	"github.com/google/uuid"
)

// AgentConfig is the JSON blob column on agents. Knowledge collections and
// tool names are advisory for the workflow engine; empty values fall back to
// defaults at job-drive time.
type AgentConfig struct {
	KnowledgeCollections []string `json:"knowledge_collections,omitempty"`
	Tools                []string `json:"tools,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
}

type Agent struct {
	Id            uuid.UUID
	ProfileId     uuid.UUID
	Name          string
	PersonaPrompt string
	Config        AgentConfig
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
