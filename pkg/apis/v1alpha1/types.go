// Package v1alpha1 defines all SmolMind resource and wire types.
package v1alpha1

import "time"

const (
	APIVersion = "smolmind.dev/v1alpha1"
)

// Resource kinds
const (
	KindAgentProfile = "AgentProfile"
	KindRoutingTable = "RoutingTable"
	KindConversation = "Conversation"
)

// TypeMeta describes the API version and kind of a resource.
type TypeMeta struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
}

// ObjectMeta holds metadata common to all resources.
type ObjectMeta struct {
	Name      string            `json:"name" yaml:"name"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	UID       string            `json:"uid,omitempty" yaml:"uid,omitempty"`
	CreatedAt time.Time         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// -------------------------------------------------------
// Messages
// -------------------------------------------------------

// Role tags a message with its speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation history.
type Message struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Agent     string    `json:"agent,omitempty" yaml:"agent,omitempty"`
	ToolName  string    `json:"toolName,omitempty" yaml:"toolName,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Turn is the result of processing one user input.
type Turn struct {
	Agent          string `json:"agent" yaml:"agent"`
	Text           string `json:"text" yaml:"text"`
	RawToolRequest string `json:"rawToolRequest,omitempty" yaml:"rawToolRequest,omitempty"`
	ToolUsed       string `json:"toolUsed,omitempty" yaml:"toolUsed,omitempty"`
	ToolOutput     string `json:"toolOutput,omitempty" yaml:"toolOutput,omitempty"`
}

// -------------------------------------------------------
// Conversation
// -------------------------------------------------------

// Conversation is the persisted form of a chat session.
type Conversation struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta `json:"metadata" yaml:"metadata"`
	History  []Message  `json:"history" yaml:"history"`
}

// -------------------------------------------------------
// Agent table manifests
// -------------------------------------------------------

// AgentProfile declares a micro-agent persona.
type AgentProfile struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta       `json:"metadata" yaml:"metadata"`
	Spec     AgentProfileSpec `json:"spec" yaml:"spec"`
}

type AgentProfileSpec struct {
	Description  string `json:"description" yaml:"description"`
	SystemPrompt string `json:"systemPrompt" yaml:"systemPrompt"`
}

// RoutingTable declares the ordered keyword routes. Earlier routes win.
type RoutingTable struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta       `json:"metadata" yaml:"metadata"`
	Spec     RoutingTableSpec `json:"spec" yaml:"spec"`
}

type RoutingTableSpec struct {
	DefaultAgent string         `json:"defaultAgent,omitempty" yaml:"defaultAgent,omitempty"`
	Routes       []KeywordRoute `json:"routes" yaml:"routes"`
}

type KeywordRoute struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Agent   string `json:"agent" yaml:"agent"`
}

// -------------------------------------------------------
// Tools
// -------------------------------------------------------

// TodoEntry is one item of the todo tool's store.
type TodoEntry struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ToolInfo describes a registered tool for listings.
type ToolInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// AgentInfo describes an agent profile for listings.
type AgentInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Default     bool     `json:"default,omitempty" yaml:"default,omitempty"`
}

// TurnRequest is the body of a turn submission.
type TurnRequest struct {
	Text string `json:"text"`
}

// ToolCallResult is the response of a direct tool invocation.
type ToolCallResult struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

// SessionRequest is the optional body of a session creation. An empty
// name gets a generated one.
type SessionRequest struct {
	Name string `json:"name,omitempty"`
}

// SessionSummary is the listing form of a Conversation.
type SessionSummary struct {
	Name      string    `json:"name" yaml:"name"`
	Messages  int       `json:"messages" yaml:"messages"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Summary returns the listing form of c.
func (c *Conversation) Summary() SessionSummary {
	return SessionSummary{
		Name:      c.Metadata.Name,
		Messages:  len(c.History),
		CreatedAt: c.Metadata.CreatedAt,
		UpdatedAt: c.Metadata.UpdatedAt,
	}
}
