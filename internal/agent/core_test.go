package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klubi/smolmind/internal/model"
	"github.com/klubi/smolmind/internal/tools"
	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// scriptedGateway returns canned replies in order and records every call.
type scriptedGateway struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]model.Message
}

func (g *scriptedGateway) Generate(_ context.Context, messages []model.Message, _ model.Settings) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, messages)
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

func newTestCore(t *testing.T, gw model.Gateway, opts ...Option) *Core {
	t.Helper()
	tc, err := tools.NewContext(t.TempDir(), "")
	require.NoError(t, err)
	c, err := NewCore(gw, tools.LoadDefaults(nil), tc, opts...)
	require.NoError(t, err)
	return c
}

func TestSelectAgent(t *testing.T) {
	c := newTestCore(t, &scriptedGateway{})

	tests := []struct {
		input string
		want  string
	}{
		{"Please summarize this plan into bullets", "Summarizer"},
		{"TL;DR of the meeting?", "Summarizer"},
		{"Draft a roadmap for Q3", "Planner"},
		{"There is a bug in my loop", "Coder"},
		{"Explain quantum tunnelling", "Researcher"},
		{"hello there", "Researcher"},
		{"", "Researcher"},
		// "plan" is checked before "code" regardless of position.
		{"code first, then plan", "Planner"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := c.SelectAgent(tt.input)
			if got.Name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Name)
			}
		})
	}
}

func TestSelectAgentIsDeterministic(t *testing.T) {
	c := newTestCore(t, &scriptedGateway{})
	first := c.SelectAgent("Fix this ERROR please")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.SelectAgent("Fix this ERROR please"))
	}
	assert.Equal(t, "Coder", first.Name)
}

func TestSetDefaultAgent(t *testing.T) {
	c := newTestCore(t, &scriptedGateway{})
	assert.Equal(t, DefaultAgentName, c.DefaultAgent().Name)

	require.NoError(t, c.SetDefaultAgent("Planner"))
	assert.Equal(t, "Planner", c.SelectAgent("hello").Name)

	err := c.SetDefaultAgent("Poet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAgent))
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "Researcher, Summarizer, Coder, Planner")
	assert.Equal(t, "Planner", c.DefaultAgent().Name)
}

func TestNewCoreRejectsBadTable(t *testing.T) {
	tc, err := tools.NewContext(t.TempDir(), "")
	require.NoError(t, err)

	table := DefaultTable()
	table.DefaultAgent = "Nobody"
	_, err = NewCore(&scriptedGateway{}, tools.LoadDefaults(nil), tc, WithTable(table))
	assert.ErrorIs(t, err, ErrUnknownAgent)

	table = DefaultTable()
	table.Routes = append(table.Routes, Route{Keyword: "poem", Agent: "Poet"})
	_, err = NewCore(&scriptedGateway{}, tools.LoadDefaults(nil), tc, WithTable(table))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewCore(nil, tools.LoadDefaults(nil), tc)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAvailableAgents(t *testing.T) {
	c := newTestCore(t, &scriptedGateway{})
	agents := c.AvailableAgents()
	require.Len(t, agents, 4)
	assert.Equal(t, "Researcher", agents[0].Name)
	assert.True(t, agents[0].Default)
	assert.Equal(t, []string{"summar", "tl;dr", "bullet"}, agents[1].Keywords)
	assert.False(t, agents[1].Default)
}

func TestComposeMessages(t *testing.T) {
	c := newTestCore(t, &scriptedGateway{})
	profile := c.SelectAgent("summarize")

	history := []v1alpha1.Message{
		{Role: v1alpha1.RoleUser, Content: "list todos"},
		{Role: v1alpha1.RoleAssistant, Content: `{"tool":"todo"}`, Agent: "Planner", ToolName: "todo"},
		{Role: v1alpha1.RoleTool, Content: "Todo list is empty.", ToolName: "todo"},
	}
	got := c.ComposeMessages(profile, history)

	want := []model.Message{
		{Role: v1alpha1.RoleSystem},
		{Role: v1alpha1.RoleUser, Content: "list todos"},
		{Role: v1alpha1.RoleAssistant, Content: `{"tool":"todo"}`},
		{Role: v1alpha1.RoleTool, Content: "Todo list is empty.", Name: "todo"},
	}
	if diff := cmp.Diff(want[1:], got[1:]); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	system := got[0].Content
	assert.Equal(t, v1alpha1.RoleSystem, got[0].Role)
	assert.True(t, strings.HasPrefix(system, profile.SystemPrompt))
	assert.Contains(t, system, "sibling agents: Researcher, Summarizer, Coder, Planner.")
	assert.Contains(t, system, "- safe_shell: ")
	assert.Contains(t, system, `{"tool": "tool_name", "args": {...}}`)
	assert.Less(t, strings.Index(system, "- safe_shell"), strings.Index(system, "- summarize_file"))
	assert.Less(t, strings.Index(system, "- summarize_file"), strings.Index(system, "- todo"))
}

func TestComposeMessagesWindow(t *testing.T) {
	c := newTestCore(t, &scriptedGateway{}, WithHistoryWindow(3))
	state := NewState()
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		state.Append(v1alpha1.Message{Role: v1alpha1.RoleUser, Content: text})
	}

	got := c.ComposeMessages(c.DefaultAgent(), state.History)
	require.Len(t, got, 4)
	contents := make([]string, 0, 3)
	for _, m := range got[1:] {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"c", "d", "e"}, contents)

	// Composing never mutates the history.
	assert.Len(t, state.History, 5)
}

func TestProcessTurnWithoutTool(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"Here are three bullets."}}
	c := newTestCore(t, gw)
	state := NewState()

	turn, err := c.ProcessTurn(context.Background(), "Please summarize this plan into bullets", state)
	require.NoError(t, err)

	want := &v1alpha1.Turn{Agent: "Summarizer", Text: "Here are three bullets."}
	if diff := cmp.Diff(want, turn); diff != "" {
		t.Errorf("turn mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, gw.calls, 1)

	wantHistory := []v1alpha1.Message{
		{Role: v1alpha1.RoleUser, Content: "Please summarize this plan into bullets"},
		{Role: v1alpha1.RoleAssistant, Content: "Here are three bullets.", Agent: "Summarizer"},
	}
	if diff := cmp.Diff(wantHistory, state.History, cmpopts.IgnoreFields(v1alpha1.Message{}, "Timestamp")); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessTurnWithTodoTool(t *testing.T) {
	gw := &scriptedGateway{replies: []string{
		`{"tool": "todo", "args": {"operation": "list"}}`,
		"Your todo list is empty.",
	}}
	c := newTestCore(t, gw)
	state := NewState()

	turn, err := c.ProcessTurn(context.Background(), "what is on my todo list?", state)
	require.NoError(t, err)

	assert.Equal(t, "Researcher", turn.Agent)
	assert.Equal(t, "todo", turn.ToolUsed)
	assert.Equal(t, tools.EmptyTodoMessage, turn.ToolOutput)
	assert.Equal(t, `{"tool": "todo", "args": {"operation": "list"}}`, turn.RawToolRequest)
	assert.Equal(t, "Your todo list is empty.", turn.Text)

	require.Len(t, state.History, 4)
	assert.Equal(t, v1alpha1.RoleUser, state.History[0].Role)
	assert.Equal(t, "todo", state.History[1].ToolName)
	assert.Equal(t, "Researcher", state.History[1].Agent)
	assert.Equal(t, v1alpha1.RoleTool, state.History[2].Role)
	assert.Equal(t, tools.EmptyTodoMessage, state.History[2].Content)
	assert.Equal(t, v1alpha1.RoleAssistant, state.History[3].Role)

	// The second gateway call sees the tool output.
	require.Len(t, gw.calls, 2)
	second := gw.calls[1]
	last := second[len(second)-1]
	assert.Equal(t, v1alpha1.RoleTool, last.Role)
	assert.Equal(t, "todo", last.Name)
}

func TestProcessTurnToolWithSurroundingProse(t *testing.T) {
	gw := &scriptedGateway{replies: []string{
		"Sure, let me add it.\n{\"tool\": \"todo\", \"args\": {\"operation\": \"add\", \"title\": \"buy milk\"}}\nDone.",
		"Added.",
	}}
	c := newTestCore(t, gw)

	turn, err := c.ProcessTurn(context.Background(), "plan: buy milk", nil)
	require.NoError(t, err)
	assert.Equal(t, "Planner", turn.Agent)
	assert.Equal(t, "Added todo #1: buy milk", turn.ToolOutput)

	raw, err := os.ReadFile(filepath.Join(c.ToolContext().DataDir, "todo.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "buy milk")
}

func TestProcessTurnMalformedJSONIsPlainReply(t *testing.T) {
	gw := &scriptedGateway{replies: []string{`{"tool": "todo", "args": {`}}
	c := newTestCore(t, gw)

	turn, err := c.ProcessTurn(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Empty(t, turn.ToolUsed)
	assert.Equal(t, `{"tool": "todo", "args": {`, turn.Text)
	assert.Len(t, gw.calls, 1)
}

func TestProcessTurnToolFailureSkipsSecondRound(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  error
	}{
		{"unknown tool", `{"tool": "rm_rf", "args": {}}`, tools.ErrUnknownTool},
		{"bad args", `{"tool": "todo", "args": {"operation": "add"}}`, tools.ErrValidation},
		{"not whitelisted", `{"tool": "safe_shell", "args": {"command": "rm -rf /"}}`, tools.ErrPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &scriptedGateway{replies: []string{tt.reply, "never used"}}
			c := newTestCore(t, gw)
			state := NewState()

			_, err := c.ProcessTurn(context.Background(), "hello", state)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, gw.calls, 1)
			// User message and tool request stay in history.
			assert.Len(t, state.History, 2)
		})
	}
}

func TestProcessTurnEmptyReplyIsError(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"   \n"}}
	c := newTestCore(t, gw)

	_, err := c.ProcessTurn(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestProcessTurnGatewayError(t *testing.T) {
	gw := &scriptedGateway{err: model.ErrNotConfigured}
	c := newTestCore(t, gw)

	_, err := c.ProcessTurn(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, model.ErrNotConfigured)
}

func TestTableFromResources(t *testing.T) {
	resources := []interface{}{
		&v1alpha1.AgentProfile{
			Metadata: v1alpha1.ObjectMeta{Name: "Poet"},
			Spec:     v1alpha1.AgentProfileSpec{Description: "Writes verse.", SystemPrompt: "You are the Poet."},
		},
		&v1alpha1.AgentProfile{
			Metadata: v1alpha1.ObjectMeta{Name: "Critic"},
			Spec:     v1alpha1.AgentProfileSpec{SystemPrompt: "You are the Critic."},
		},
		&v1alpha1.RoutingTable{
			Spec: v1alpha1.RoutingTableSpec{Routes: []v1alpha1.KeywordRoute{
				{Keyword: "Review", Agent: "Critic"},
			}},
		},
	}

	table, err := TableFromResources(resources)
	require.NoError(t, err)
	assert.Equal(t, "Poet", table.DefaultAgent)

	c := newTestCore(t, &scriptedGateway{}, WithTable(table))
	assert.Equal(t, "Critic", c.SelectAgent("please REVIEW this").Name)
	assert.Equal(t, "Poet", c.SelectAgent("a sonnet").Name)

	_, err = TableFromResources([]interface{}{"nope"})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestTableResourcesRoundTrip(t *testing.T) {
	table, err := TableFromResources(DefaultTable().Resources())
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultTable(), table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestStateWindow(t *testing.T) {
	state := NewState(
		v1alpha1.Message{Role: v1alpha1.RoleUser, Content: "1"},
		v1alpha1.Message{Role: v1alpha1.RoleAssistant, Content: "2"},
		v1alpha1.Message{Role: v1alpha1.RoleUser, Content: "3"},
	)
	assert.Len(t, state.Window(2), 2)
	assert.Equal(t, "2", state.Window(2)[0].Content)
	assert.Len(t, state.Window(0), 3)
	assert.Len(t, state.Window(10), 3)
	// Persisted history keeps its (zero) timestamps; only Append stamps.
	assert.True(t, state.History[0].Timestamp.IsZero())
}
