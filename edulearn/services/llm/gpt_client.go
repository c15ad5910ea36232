package llm

import (
	"context"
	"strings"

	"edulearn/edulearn/services/chatsession"
	"edulearn/edulearn/utils/logging"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GPTClient generates replies through any OpenAI-compatible chat API.
type GPTClient struct {
	client openai.Client
	model  string
}

func NewGPTClient(apiKey, baseURL, model string, extra ...option.RequestOption) *GPTClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &GPTClient{
		client: openai.NewClient(append(opts, extra...)...),
		model:  model,
	}
}

func (c *GPTClient) GenerateResponse(ctx context.Context, sc chatsession.SessionContext) (chatsession.Message, error) {
	defer logging.LogDuration(ctx, "llm_gpt_generate")()

	var params []openai.ChatCompletionMessageParamUnion
	for _, m := range History(sc) {
		switch m.Role {
		case "system":
			params = append(params, openai.SystemMessage(m.Content))
		case "assistant":
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: params,
	})
	if err != nil {
		return chatsession.Message{}, err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return chatsession.Message{}, errEmptyReply
	}
	return chatsession.Message{Sender: chatsession.SenderAssistant, Text: resp.Choices[0].Message.Content}, nil
}
