package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateAgentRequest struct {
	Name                 string   `json:"name" validate:"required,max=200"`
	PersonaPrompt        string   `json:"persona_prompt"`
	KnowledgeCollections []string `json:"knowledge_collections" validate:"max=10"`
	Tools                []string `json:"tools" validate:"max=50"`
}

type UpdateAgentRequest struct {
	Name                 *string  `json:"name" validate:"omitempty,max=200"`
	PersonaPrompt        *string  `json:"persona_prompt"`
	KnowledgeCollections []string `json:"knowledge_collections" validate:"max=10"`
	Tools                []string `json:"tools" validate:"max=50"`
}

type AgentResponse struct {
	Id                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	PersonaPrompt        string     `json:"persona_prompt"`
	KnowledgeCollections []string   `json:"knowledge_collections,omitempty"`
	Tools                []string   `json:"tools,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at"`
}
