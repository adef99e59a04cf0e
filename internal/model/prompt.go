package model

import "strings"

// ChatTemplateHeader opens every flattened prompt.
const ChatTemplateHeader = "You are SmolMind, a local-first assistant composed of specialised micro-agents." +
	" Always provide helpful, concise answers.\n"

// FormatPrompt flattens messages into a single text prompt for backends that
// only accept plain text. The prompt ends with an open assistant block.
func FormatPrompt(messages []Message) string {
	parts := make([]string, 0, len(messages)+2)
	parts = append(parts, ChatTemplateHeader)
	for _, m := range messages {
		role := string(m.Role)
		if role == "" {
			role = "user"
		}
		parts = append(parts, "<|"+role+"|>\n"+m.Content+"\n")
	}
	parts = append(parts, "<|assistant|>\n")
	return strings.Join(parts, "\n")
}

// toolResultText renders a tool-role message for backends without a
// free-standing tool role.
func toolResultText(m Message) string {
	if m.Name == "" {
		return "Tool result:\n" + m.Content
	}
	return "Tool result (" + m.Name + "):\n" + m.Content
}
