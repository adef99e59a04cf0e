package agent

import (
	"encoding/json"
	"strings"
)

// ToolCall is a tool request parsed out of a model reply.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ExtractToolCall looks for {"tool": "<name>", "args": {...}} in reply.
// The whole reply is tried first, then the span from the first '{' to the
// last '}', which tolerates prose around the JSON. Anything else means no
// tool was requested.
func ExtractToolCall(reply string) (*ToolCall, bool) {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return nil, false
	}

	obj, ok := parseObject(trimmed)
	if !ok {
		return nil, false
	}
	name, ok := obj["tool"].(string)
	if !ok {
		return nil, false
	}
	args, ok := obj["args"].(map[string]any)
	if !ok {
		args = map[string]any{}
	}
	return &ToolCall{Name: name, Args: args}, true
}

func parseObject(text string) (map[string]any, bool) {
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end <= start {
			return nil, false
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
			return nil, false
		}
	}
	obj, ok := parsed.(map[string]any)
	return obj, ok
}
