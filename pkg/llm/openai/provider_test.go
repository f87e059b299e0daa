package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatgpt-clone-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
}

func chunkLine(t *testing.T, content string) string {
	t.Helper()
	chunk := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"delta": map[string]string{"content": content}},
		},
	}
	data, err := json.Marshal(chunk)
	require.NoError(t, err)
	return "data: " + string(data)
}

func drainStream(t *testing.T, s *llm.Stream) []llm.Event {
	t.Helper()
	var out []llm.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining stream")
		}
	}
}

func TestChatStreamDeliversFragmentsAndFinalText(t *testing.T) {
	srv := sseServer(t, []string{
		chunkLine(t, "Hel"),
		chunkLine(t, "lo"),
		"data: [DONE]",
	})
	defer srv.Close()

	p := NewProviderWithBaseURL(srv.URL, "test-key", "gpt-4o-mini")
	stream, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	events := drainStream(t, stream)
	require.Len(t, events, 3)
	assert.Equal(t, llm.EventFragment, events[0].Type)
	assert.Equal(t, "Hel", events[0].Fragment)
	assert.Equal(t, llm.EventFragment, events[1].Type)
	assert.Equal(t, "lo", events[1].Fragment)
	assert.Equal(t, llm.EventCompleted, events[2].Type)
	assert.Equal(t, "Hello", events[2].FinalText)
}

func TestChatStreamMissingDoneStillCompletes(t *testing.T) {
	srv := sseServer(t, []string{chunkLine(t, "partial")})
	defer srv.Close()

	p := NewProviderWithBaseURL(srv.URL, "test-key", "gpt-4o-mini")
	stream, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	events := drainStream(t, stream)
	last := events[len(events)-1]
	assert.Equal(t, llm.EventCompleted, last.Type)
	assert.Equal(t, "partial", last.FinalText)
}

func TestChatStreamRejectionIsSynchronous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewProviderWithBaseURL(srv.URL, "bad-key", "gpt-4o-mini")
	stream, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})

	require.Error(t, err)
	assert.Nil(t, stream)
	assert.Contains(t, err.Error(), "status 401")
}

func TestChatNonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.False(t, req.Stream)
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "pong"}}},
		})
	}))
	defer srv.Close()

	p := NewProviderWithBaseURL(srv.URL, "test-key", "gpt-4o-mini")
	got, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "ping"}})
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}

func TestBuildRequestMapsModelRole(t *testing.T) {
	p := NewOpenAIProvider("k", "gpt-4o")
	req, err := p.buildRequest(context.Background(), []llm.Message{
		{Role: "model", Content: "legacy role name"},
	}, false)
	require.NoError(t, err)

	var payload chatRequest
	require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "assistant", payload.Messages[0].Role)
}
