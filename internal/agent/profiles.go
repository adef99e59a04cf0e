package agent

import (
	"fmt"
	"strings"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// DefaultAgentName is the fallback persona when no keyword matches.
const DefaultAgentName = "Researcher"

// Profile is a named persona with a fixed system prompt fragment.
type Profile struct {
	Name         string
	Description  string
	SystemPrompt string
}

// Route sends inputs containing Keyword to Agent.
type Route struct {
	Keyword string
	Agent   string
}

// Table is the full persona configuration. Routes are checked in order and
// the first keyword found wins, regardless of where it appears in the input.
type Table struct {
	Profiles     []Profile
	Routes       []Route
	DefaultAgent string
}

// DefaultTable returns the built-in personas and keyword routes.
func DefaultTable() Table {
	return Table{
		Profiles: []Profile{
			{
				Name:         "Researcher",
				Description:  "Gathers information, compares sources, and surfaces insights.",
				SystemPrompt: "You are the Researcher agent. Focus on fact-finding, evidence, and clarity.",
			},
			{
				Name:         "Summarizer",
				Description:  "Condenses documents and conversations into concise bullet points.",
				SystemPrompt: "You are the Summarizer agent. Produce tight, structured summaries.",
			},
			{
				Name:         "Coder",
				Description:  "Assists with programming tasks, debugging, and code walkthroughs.",
				SystemPrompt: "You are the Coder agent. Give actionable code help and highlight pitfalls.",
			},
			{
				Name:         "Planner",
				Description:  "Breaks objectives into clear steps and timelines.",
				SystemPrompt: "You are the Planner agent. Create pragmatic plans with sequencing and priorities.",
			},
		},
		Routes: []Route{
			{"summar", "Summarizer"},
			{"tl;dr", "Summarizer"},
			{"bullet", "Summarizer"},
			{"plan", "Planner"},
			{"roadmap", "Planner"},
			{"schedule", "Planner"},
			{"strategy", "Planner"},
			{"code", "Coder"},
			{"bug", "Coder"},
			{"error", "Coder"},
			{"refactor", "Coder"},
			{"research", "Researcher"},
			{"compare", "Researcher"},
			{"explain", "Researcher"},
			{"learn", "Researcher"},
		},
		DefaultAgent: DefaultAgentName,
	}
}

// Validate checks that names are unique and every route and the default
// agent point at a known profile.
func (t Table) Validate() error {
	if len(t.Profiles) == 0 {
		return fmt.Errorf("%w: agent table has no profiles", ErrConfiguration)
	}
	known := make(map[string]bool, len(t.Profiles))
	for _, p := range t.Profiles {
		if p.Name == "" {
			return fmt.Errorf("%w: agent profile without a name", ErrConfiguration)
		}
		if known[p.Name] {
			return fmt.Errorf("%w: duplicate agent profile %q", ErrConfiguration, p.Name)
		}
		known[p.Name] = true
	}
	for i, r := range t.Routes {
		if strings.TrimSpace(r.Keyword) == "" {
			return fmt.Errorf("%w: route %d has an empty keyword", ErrConfiguration, i)
		}
		if !known[r.Agent] {
			return fmt.Errorf("%w: route %q targets unknown agent %q", ErrConfiguration, r.Keyword, r.Agent)
		}
	}
	if t.DefaultAgent != "" && !known[t.DefaultAgent] {
		return fmt.Errorf("%w %q. Available: %s", ErrUnknownAgent, t.DefaultAgent, strings.Join(t.names(), ", "))
	}
	return nil
}

func (t Table) names() []string {
	names := make([]string, 0, len(t.Profiles))
	for _, p := range t.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// TableFromResources builds a Table from parsed AgentProfile and
// RoutingTable manifests. Profiles keep document order; routes from several
// RoutingTable documents are concatenated in order.
func TableFromResources(resources []interface{}) (Table, error) {
	var t Table
	for _, res := range resources {
		switch r := res.(type) {
		case *v1alpha1.AgentProfile:
			t.Profiles = append(t.Profiles, Profile{
				Name:         r.Metadata.Name,
				Description:  r.Spec.Description,
				SystemPrompt: r.Spec.SystemPrompt,
			})
		case *v1alpha1.RoutingTable:
			for _, route := range r.Spec.Routes {
				t.Routes = append(t.Routes, Route{Keyword: route.Keyword, Agent: route.Agent})
			}
			if r.Spec.DefaultAgent != "" {
				t.DefaultAgent = r.Spec.DefaultAgent
			}
		default:
			return Table{}, fmt.Errorf("%w: unexpected resource %T in agent table", ErrConfiguration, res)
		}
	}
	if t.DefaultAgent == "" && len(t.Profiles) > 0 {
		t.DefaultAgent = t.Profiles[0].Name
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Resources converts t into AgentProfile and RoutingTable manifests,
// the inverse of TableFromResources.
func (t Table) Resources() []interface{} {
	out := make([]interface{}, 0, len(t.Profiles)+1)
	for _, p := range t.Profiles {
		out = append(out, &v1alpha1.AgentProfile{
			TypeMeta: v1alpha1.TypeMeta{APIVersion: v1alpha1.APIVersion, Kind: v1alpha1.KindAgentProfile},
			Metadata: v1alpha1.ObjectMeta{Name: p.Name},
			Spec:     v1alpha1.AgentProfileSpec{Description: p.Description, SystemPrompt: p.SystemPrompt},
		})
	}
	routes := make([]v1alpha1.KeywordRoute, 0, len(t.Routes))
	for _, r := range t.Routes {
		routes = append(routes, v1alpha1.KeywordRoute{Keyword: r.Keyword, Agent: r.Agent})
	}
	out = append(out, &v1alpha1.RoutingTable{
		TypeMeta: v1alpha1.TypeMeta{APIVersion: v1alpha1.APIVersion, Kind: v1alpha1.KindRoutingTable},
		Metadata: v1alpha1.ObjectMeta{Name: "routes"},
		Spec:     v1alpha1.RoutingTableSpec{DefaultAgent: t.DefaultAgent, Routes: routes},
	})
	return out
}
