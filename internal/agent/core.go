// Package agent implements the SmolMind turn orchestrator: it routes user
// input to a micro-agent persona, talks to the model gateway and runs at
// most one requested tool per turn.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/klubi/smolmind/internal/model"
	"github.com/klubi/smolmind/internal/tools"
	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// Core is the multi-agent orchestrator.
type Core struct {
	table    Table
	lookup   map[string]Profile
	routes   []Route
	registry *tools.Registry
	toolCtx  *tools.Context
	gateway  model.Gateway
	settings model.Settings
	window   int
	logger   *zap.Logger

	mu           sync.RWMutex
	defaultAgent Profile
}

// Option customises a Core.
type Option func(*Core)

// WithTable replaces the built-in agent table.
func WithTable(t Table) Option {
	return func(c *Core) { c.table = t }
}

// WithSettings sets the model settings passed on every gateway call.
func WithSettings(s model.Settings) Option {
	return func(c *Core) { c.settings = s }
}

// WithHistoryWindow sets how many history messages are sent per prompt.
func WithHistoryWindow(n int) Option {
	return func(c *Core) { c.window = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Core) { c.logger = l }
}

// NewCore wires a Core. The tool context is shared by every tool call.
func NewCore(gw model.Gateway, registry *tools.Registry, toolCtx *tools.Context, opts ...Option) (*Core, error) {
	c := &Core{
		table:    DefaultTable(),
		registry: registry,
		toolCtx:  toolCtx,
		gateway:  gw,
		window:   DefaultHistoryWindow,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if gw == nil {
		return nil, fmt.Errorf("%w: model gateway is nil", ErrConfiguration)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: tool registry is nil", ErrConfiguration)
	}
	if toolCtx == nil {
		return nil, fmt.Errorf("%w: tool context is nil", ErrConfiguration)
	}
	if err := c.table.Validate(); err != nil {
		return nil, err
	}

	c.lookup = make(map[string]Profile, len(c.table.Profiles))
	for _, p := range c.table.Profiles {
		c.lookup[p.Name] = p
	}
	c.routes = make([]Route, 0, len(c.table.Routes))
	for _, r := range c.table.Routes {
		c.routes = append(c.routes, Route{Keyword: strings.ToLower(r.Keyword), Agent: r.Agent})
	}

	def := c.table.DefaultAgent
	if def == "" {
		def = DefaultAgentName
	}
	if err := c.SetDefaultAgent(def); err != nil {
		return nil, err
	}
	return c, nil
}

// SetDefaultAgent changes the fallback persona.
func (c *Core) SetDefaultAgent(name string) error {
	p, ok := c.lookup[name]
	if !ok {
		return fmt.Errorf("%w %q. Available: %s", ErrUnknownAgent, name, strings.Join(c.table.names(), ", "))
	}
	c.mu.Lock()
	c.defaultAgent = p
	c.mu.Unlock()
	return nil
}

// DefaultAgent returns the current fallback persona.
func (c *Core) DefaultAgent() Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultAgent
}

// Profile looks up a persona by name.
func (c *Core) Profile(name string) (Profile, bool) {
	p, ok := c.lookup[name]
	return p, ok
}

// AvailableAgents lists every persona in table order with its keywords.
func (c *Core) AvailableAgents() []v1alpha1.AgentInfo {
	def := c.DefaultAgent().Name
	keywords := make(map[string][]string)
	for _, r := range c.table.Routes {
		keywords[r.Agent] = append(keywords[r.Agent], r.Keyword)
	}
	out := make([]v1alpha1.AgentInfo, 0, len(c.table.Profiles))
	for _, p := range c.table.Profiles {
		out = append(out, v1alpha1.AgentInfo{
			Name:        p.Name,
			Description: p.Description,
			Keywords:    keywords[p.Name],
			Default:     p.Name == def,
		})
	}
	return out
}

// Tools returns the registry the core dispatches to.
func (c *Core) Tools() *tools.Registry {
	return c.registry
}

// ToolContext returns the context shared by every tool call.
func (c *Core) ToolContext() *tools.Context {
	return c.toolCtx
}

// SelectAgent returns the persona for userText: the first route (in table
// order) whose keyword occurs in the lower-cased text, else the default.
func (c *Core) SelectAgent(userText string) Profile {
	lowered := strings.ToLower(userText)
	for _, r := range c.routes {
		if strings.Contains(lowered, r.Keyword) {
			return c.lookup[r.Agent]
		}
	}
	return c.DefaultAgent()
}

// ProcessTurn runs one user input through agent selection, the model and at
// most one tool round-trip. Every message is appended to state. Gateway and
// tool calls are attempted once; their errors abort the turn.
func (c *Core) ProcessTurn(ctx context.Context, userText string, state *State) (*v1alpha1.Turn, error) {
	if state == nil {
		state = NewState()
	}

	state.Append(v1alpha1.Message{Role: v1alpha1.RoleUser, Content: userText})

	profile := c.SelectAgent(userText)
	c.logger.Debug("selected agent", zap.String("agent", profile.Name), zap.String("input", userText))

	reply, err := c.generate(ctx, profile, state)
	if err != nil {
		return nil, err
	}

	call, ok := ExtractToolCall(reply)
	if !ok {
		state.Append(v1alpha1.Message{Role: v1alpha1.RoleAssistant, Content: reply, Agent: profile.Name})
		return &v1alpha1.Turn{Agent: profile.Name, Text: reply}, nil
	}

	c.logger.Info("agent requested tool",
		zap.String("agent", profile.Name),
		zap.String("tool", call.Name),
		zap.Any("args", call.Args),
	)
	state.Append(v1alpha1.Message{
		Role:     v1alpha1.RoleAssistant,
		Content:  reply,
		Agent:    profile.Name,
		ToolName: call.Name,
	})

	output, err := c.registry.Call(ctx, call.Name, call.Args, c.toolCtx)
	if err != nil {
		return nil, fmt.Errorf("running tool %s: %w", call.Name, err)
	}
	state.Append(v1alpha1.Message{Role: v1alpha1.RoleTool, Content: output, ToolName: call.Name})

	final, err := c.generate(ctx, profile, state)
	if err != nil {
		return nil, err
	}
	state.Append(v1alpha1.Message{Role: v1alpha1.RoleAssistant, Content: final, Agent: profile.Name})

	return &v1alpha1.Turn{
		Agent:          profile.Name,
		Text:           final,
		RawToolRequest: reply,
		ToolUsed:       call.Name,
		ToolOutput:     output,
	}, nil
}

func (c *Core) generate(ctx context.Context, profile Profile, state *State) (string, error) {
	messages := c.ComposeMessages(profile, state.History)
	reply, err := c.gateway.Generate(ctx, messages, c.settings)
	if err != nil {
		return "", fmt.Errorf("generating reply for %s: %w", profile.Name, err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
