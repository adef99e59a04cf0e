package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToolCall(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantOK   bool
		wantName string
		wantArgs map[string]any
	}{
		{"bare object", `{"tool": "todo", "args": {"operation": "list"}}`, true, "todo", map[string]any{"operation": "list"}},
		{"surrounded by prose", "Sure!\n{\"tool\": \"safe_shell\", \"args\": {\"command\": \"ls\"}}\nok", true, "safe_shell", map[string]any{"command": "ls"}},
		{"missing args", `{"tool": "todo"}`, true, "todo", map[string]any{}},
		{"plain text", "Hello, how can I help?", false, "", nil},
		{"empty", "   ", false, "", nil},
		{"truncated", `{"tool": "todo", "args": {`, false, "", nil},
		{"no tool key", `{"name": "todo"}`, false, "", nil},
		{"tool not a string", `{"tool": 3}`, false, "", nil},
		{"array", `[{"tool": "todo"}]`, false, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok := ExtractToolCall(tt.reply)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, call)
				return
			}
			assert.Equal(t, tt.wantName, call.Name)
			assert.Equal(t, tt.wantArgs, call.Args)
		})
	}
}
