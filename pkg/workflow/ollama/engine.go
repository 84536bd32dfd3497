package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agent-chat-be/pkg/workflow"
)

// Engine streams chat completions from an Ollama server, mapping each chunk
// to a token event and closing the sequence with a result and an end marker.
type Engine struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ workflow.Engine = &Engine{}

func NewEngine(baseURL, modelName string) *Engine {
	return &Engine{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (e *Engine) systemPrompt(req workflow.Request) string {
	var b strings.Builder
	b.WriteString(req.PersonaPrompt)
	if len(req.KnowledgeCollections) > 0 {
		b.WriteString("\n\nRelevant knowledge collections: ")
		b.WriteString(strings.Join(req.KnowledgeCollections, ", "))
	}
	if len(req.Tools) > 0 {
		b.WriteString("\nAvailable tools: ")
		b.WriteString(strings.Join(req.Tools, ", "))
	}
	return b.String()
}

func (e *Engine) buildMessages(req workflow.Request) []ollamaMessage {
	messages := make([]ollamaMessage, 0, len(req.History)+2)
	messages = append(messages, ollamaMessage{Role: "system", Content: e.systemPrompt(req)})
	for _, msg := range req.History {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		messages = append(messages, ollamaMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.Input})
	return messages
}

func (e *Engine) Stream(ctx context.Context, req workflow.Request) (<-chan workflow.Event, error) {
	payload, err := json.Marshal(ollamaChatRequest{
		Model:    e.ModelName,
		Messages: e.buildMessages(req),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := e.BaseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	out := make(chan workflow.Event)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		var full strings.Builder
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			if chunk.Message.Content != "" {
				full.WriteString(chunk.Message.Content)
				out <- workflow.TokenEvent(chunk.Message.Content)
			}
			if chunk.Done {
				break
			}
		}
		out <- workflow.ResultEvent(full.String())
		out <- workflow.EndEvent()
	}()
	return out, nil
}
