package factory

import (
	"fmt"

	"agent-chat-be/pkg/workflow"
	"agent-chat-be/pkg/workflow/ollama"
)

// NewEngine builds a workflow engine from config values.
func NewEngine(provider, model, baseURL string) (workflow.Engine, error) {
	switch provider {
	case "ollama", "":
		return ollama.NewEngine(baseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported workflow provider: %s", provider)
	}
}
