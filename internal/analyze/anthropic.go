package analyze

import (
	"context"
	"strings"

	"github.com/sells-group/interview-cli/pkg/anthropic"
)

// defaultAnthropicTokens is used when a request leaves MaxTokens unset; the
// Messages API requires it.
const defaultAnthropicTokens = 1024

// AnthropicCompleter adapts the Anthropic Messages API. JSON mode is
// requested through the prompt since the API has no response_format.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a Completer backed by client.
func NewAnthropicCompleter(client anthropic.Client, model string) *AnthropicCompleter {
	return &AnthropicCompleter{client: client, model: model}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON object and nothing else.")
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
