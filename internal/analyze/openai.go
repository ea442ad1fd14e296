package analyze

import (
	"context"

	"github.com/sells-group/interview-cli/pkg/openai"
)

// OpenAICompleter adapts an OpenAI-compatible chat client.
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a Completer backed by client. An empty model
// uses the client default.
func NewOpenAICompleter(client openai.Client, model string) *OpenAICompleter {
	return &OpenAICompleter{client: client, model: model}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	creq := openai.ChatCompletionRequest{Model: c.model}
	if req.System != "" {
		creq.Messages = append(creq.Messages, openai.Message{Role: "system", Content: req.System})
	}
	creq.Messages = append(creq.Messages, openai.Message{Role: "user", Content: req.User})
	if req.JSON {
		creq.ResponseFormat = openai.JSONObject
	}
	if req.MaxTokens > 0 {
		n := req.MaxTokens
		creq.MaxTokens = &n
	}

	resp, err := c.client.ChatCompletion(ctx, creq)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}
