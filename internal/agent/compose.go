package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/klubi/smolmind/internal/model"
	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// DefaultHistoryWindow is how many trailing history messages go into a prompt.
const DefaultHistoryWindow = 10

const toolInstructions = `When a tool is required respond *only* with JSON:
{"tool": "tool_name", "args": {...}}

After receiving a tool result, craft a natural language answer.
If no tool is needed, respond normally.`

// ComposeMessages builds the gateway input for profile: one system message
// followed by the trailing history window.
func (c *Core) ComposeMessages(profile Profile, history []v1alpha1.Message) []model.Message {
	history = window(history, c.window)

	messages := make([]model.Message, 0, len(history)+1)
	messages = append(messages, model.Message{Role: v1alpha1.RoleSystem, Content: c.systemPrompt(profile)})
	for _, m := range history {
		entry := model.Message{Role: m.Role, Content: m.Content}
		if m.Role == v1alpha1.RoleTool {
			entry.Name = m.ToolName
		}
		messages = append(messages, entry)
	}
	return messages
}

func (c *Core) systemPrompt(profile Profile) string {
	described := c.registry.Describe()
	names := make([]string, 0, len(described))
	for name := range described {
		names = append(names, name)
	}
	sort.Strings(names)

	toolLines := make([]string, 0, len(names))
	for _, name := range names {
		toolLines = append(toolLines, fmt.Sprintf("- %s: %s", name, described[name]))
	}

	var b strings.Builder
	b.WriteString(profile.SystemPrompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "You are collaborating with sibling agents: %s.\n", strings.Join(c.table.names(), ", "))
	b.WriteString("Use tools only when they add value.\n\n")
	b.WriteString("Available tools:\n")
	b.WriteString(strings.Join(toolLines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(toolInstructions)
	return b.String()
}
