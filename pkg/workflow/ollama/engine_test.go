package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"agent-chat-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, c := range chunks {
			_, _ = w.Write([]byte(c + "\n"))
		}
	}))
}

func collect(t *testing.T, ch <-chan workflow.Event) []workflow.Event {
	t.Helper()
	var out []workflow.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestStreamEmitsTokensThenResultAndEnd(t *testing.T) {
	srv := streamServer(t, []string{
		`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
		`{"message":{"role":"assistant","content":"lo"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	})
	defer srv.Close()

	engine := NewEngine(srv.URL, "llama3")
	ch, err := engine.Stream(context.Background(), workflow.Request{Input: "hi"})
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 4)

	assert.Equal(t, workflow.KindToken, events[0].Kind)
	assert.Equal(t, "Hel", events[0].Content)
	assert.Equal(t, workflow.KindToken, events[1].Kind)
	assert.Equal(t, "lo", events[1].Content)
	assert.Equal(t, workflow.KindResult, events[2].Kind)
	assert.Equal(t, "Hello", events[2].Content)
	assert.Equal(t, workflow.KindEnd, events[3].Kind)
}

func TestStreamSkipsMalformedChunks(t *testing.T) {
	srv := streamServer(t, []string{
		`not json at all`,
		`{"message":{"role":"assistant","content":"ok"},"done":true}`,
	})
	defer srv.Close()

	engine := NewEngine(srv.URL, "llama3")
	ch, err := engine.Stream(context.Background(), workflow.Request{Input: "hi"})
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 3)
	assert.Equal(t, "ok", events[0].Content)
	assert.Equal(t, "ok", events[1].Content) // result aggregates the tokens
	assert.Equal(t, workflow.KindEnd, events[2].Kind)
}

func TestStreamNonOKStatusFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := NewEngine(srv.URL, "llama3")
	_, err := engine.Stream(context.Background(), workflow.Request{Input: "hi"})
	assert.Error(t, err)
}

func TestBuildMessagesOrdering(t *testing.T) {
	engine := NewEngine("http://localhost:11434", "llama3")
	req := workflow.Request{
		PersonaPrompt: "Be terse.",
		History: []workflow.Message{
			{Role: "user", Content: "q1"},
			{Role: "model", Content: "a1"},
		},
		Input: "q2",
	}

	messages := engine.buildMessages(req)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "assistant", messages[2].Role, "model role is normalized")
	assert.Equal(t, "user", messages[3].Role)
	assert.Equal(t, "q2", messages[3].Content)
}

func TestSystemPromptIncludesCollectionsAndTools(t *testing.T) {
	engine := NewEngine("http://localhost:11434", "llama3")
	prompt := engine.systemPrompt(workflow.Request{
		PersonaPrompt:        "persona",
		KnowledgeCollections: []string{"a", "b"},
		Tools:                []string{"search"},
	})

	assert.Contains(t, prompt, "persona")
	assert.Contains(t, prompt, "a, b")
	assert.Contains(t, prompt, "search")
}

func TestStreamSendsHistoryInRequestBody(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"content":""},"done":true}` + "\n"))
	}))
	defer srv.Close()

	engine := NewEngine(srv.URL, "qwen2.5")
	ch, err := engine.Stream(context.Background(), workflow.Request{
		History: []workflow.Message{{Role: "user", Content: "before"}},
		Input:   "now",
	})
	require.NoError(t, err)
	collect(t, ch)

	assert.Equal(t, "qwen2.5", got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "before", got.Messages[1].Content)
}
