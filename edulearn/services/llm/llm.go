package llm

import (
	"context"
	"errors"
	"strings"

	"edulearn/edulearn/services/chatsession"
	httputils "edulearn/edulearn/utils/http"
	"edulearn/edulearn/utils/logging"
)

// TutorPrompt frames every generated reply.
const TutorPrompt = "You are EduLearn, a patient study assistant. Explain step by step, " +
	"check understanding with a short question, and keep answers focused on the student's topic."

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History turns a session into role/content turns led by the tutor prompt.
func History(sc chatsession.SessionContext) []Message {
	msgs := make([]Message, 0, len(sc.History)+1)
	msgs = append(msgs, Message{Role: "system", Content: TutorPrompt})
	for _, m := range sc.History {
		role := "user"
		if m.Sender == chatsession.SenderAssistant {
			role = "assistant"
		}
		msgs = append(msgs, Message{Role: role, Content: m.Text})
	}
	return msgs
}

var errEmptyReply = errors.New("model returned an empty reply")

// OllamaClient talks to a local Ollama server.
type OllamaClient struct {
	baseURL string
	model   string
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{baseURL: strings.TrimRight(baseURL, "/"), model: model}
}

type ChatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  interface{} `json:"options,omitempty"`
}

type ChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (c *OllamaClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, "llm_service_run")()
	var resp ChatResponse
	if err := httputils.PostJSON(ctx, c.baseURL+"/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (c *OllamaClient) GenerateResponse(ctx context.Context, sc chatsession.SessionContext) (chatsession.Message, error) {
	content, err := c.Run(ctx, ChatRequest{Model: c.model, Messages: History(sc)})
	if err != nil {
		return chatsession.Message{}, err
	}
	if strings.TrimSpace(content) == "" {
		return chatsession.Message{}, errEmptyReply
	}
	return chatsession.Message{Sender: chatsession.SenderAssistant, Text: content}, nil
}
