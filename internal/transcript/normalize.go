// Package transcript retrieves finished voice conversations and flattens
// their transcripts into a single text blob.
package transcript

import "strings"

// Normalize flattens a provider conversation document into one text blob.
// Supported shapes for the "transcript" field: a plain string, or a list of
// turns carrying role and message. A "metadata" object holding either shape
// is searched when the top level has none. Anything else yields "".
func Normalize(doc map[string]any) string {
	if doc == nil {
		return ""
	}
	if text, ok := fromValue(doc["transcript"]); ok {
		return text
	}
	if meta, ok := doc["metadata"].(map[string]any); ok {
		if text, ok := fromValue(meta["transcript"]); ok {
			return text
		}
	}
	return ""
}

func fromValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case []any:
		return joinTurns(t), true
	default:
		return "", false
	}
}

func joinTurns(turns []any) string {
	lines := make([]string, 0, len(turns))
	for _, raw := range turns {
		turn, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		msg, _ := turn["message"].(string)
		if strings.TrimSpace(msg) == "" {
			continue
		}
		role, _ := turn["role"].(string)
		if role == "" {
			role = "unknown"
		}
		lines = append(lines, role+": "+strings.TrimSpace(msg))
	}
	return strings.Join(lines, "\n")
}
