package workflow

import "context"

// Message is one turn of prior conversation handed to the engine.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Request carries everything an engine needs to answer one user message.
type Request struct {
	History              []Message
	Input                string
	PersonaPrompt        string
	Tools                []string
	KnowledgeCollections []string
}

// Engine produces a lazy, finite, non-restartable event sequence for one
// request, terminated by at least one End event. The returned channel is
// closed by the engine when the sequence is exhausted.
type Engine interface {
	Stream(ctx context.Context, req Request) (<-chan Event, error)
}
