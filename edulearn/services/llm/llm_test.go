package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edulearn/edulearn/services/chatsession"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionContext() chatsession.SessionContext {
	return chatsession.SessionContext{
		SessionID: "s1",
		History: []chatsession.Message{
			{Sender: chatsession.SenderUser, Text: "What is momentum?"},
			{Sender: chatsession.SenderAssistant, Text: "Mass times velocity."},
			{Sender: chatsession.SenderUser, Text: "And impulse?"},
		},
	}
}

func TestHistoryLeadsWithTutorPrompt(t *testing.T) {
	msgs := History(sessionContext())
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "And impulse?", msgs[3].Content)
}

func TestSimulatedRotatesReplies(t *testing.T) {
	s := &Simulated{Replies: []string{"a", "b"}}
	ctx := context.Background()
	var got []string
	for i := 0; i < 3; i++ {
		msg, err := s.GenerateResponse(ctx, sessionContext())
		require.NoError(t, err)
		assert.Equal(t, chatsession.SenderAssistant, msg.Sender)
		got = append(got, msg.Text)
	}
	assert.Equal(t, []string{"a", "b", "a"}, got)
}

func TestSimulatedHonoursCancellation(t *testing.T) {
	s := NewSimulated(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.GenerateResponse(ctx, sessionContext())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOllamaGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		assert.Len(t, req.Messages, 4)
		json.NewEncoder(w).Encode(ChatResponse{Message: Message{Role: "assistant", Content: "Impulse is force times time."}, Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/api/", "llama3")
	msg, err := c.GenerateResponse(context.Background(), sessionContext())
	require.NoError(t, err)
	assert.Equal(t, "Impulse is force times time.", msg.Text)
}

func TestOllamaBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "llama3").GenerateResponse(context.Background(), sessionContext())
	assert.Error(t, err)
}

func TestGPTClientGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.Len(t, body.Messages, 4)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Force times time."}}]}`))
	}))
	defer srv.Close()

	c := NewGPTClient("key", srv.URL, "test-model", option.WithMaxRetries(0))
	msg, err := c.GenerateResponse(context.Background(), sessionContext())
	require.NoError(t, err)
	assert.Equal(t, "Force times time.", msg.Text)
	assert.Equal(t, chatsession.SenderAssistant, msg.Sender)
}
