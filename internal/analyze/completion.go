// Package analyze runs the LLM steps of the interview workflow: pulling
// verbatim answers out of transcripts and gating leads against an ICP.
package analyze

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Request is one completion call.
type Request struct {
	System    string
	User      string
	MaxTokens int
	// JSON asks the backend for a JSON object response where supported.
	JSON bool
}

// Completer sends a single completion request and returns the raw text of
// the first choice. An empty string means the backend returned no content.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// cleanJSON strips markdown fences and surrounding prose from a model reply,
// leaving the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if rest, ok := strings.CutPrefix(text, "```json"); ok {
		text = rest
	} else if rest, ok := strings.CutPrefix(text, "```"); ok {
		text = rest
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// decodeObject parses a model reply into a generic object.
func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &obj); err != nil {
		return nil, eris.Wrap(err, "analyze: parse model reply")
	}
	if obj == nil {
		return nil, eris.New("analyze: model reply is not a JSON object")
	}
	return obj, nil
}

// stringField returns obj[key] when it is a string, otherwise "".
func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// truthy coerces a loosely typed boolean. Only true, and the exact
// strings true/yes/oui/valid (any case), count as true.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "oui", "valid":
			return true
		}
	}
	return false
}
