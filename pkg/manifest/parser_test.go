package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

const agentsYAML = `
apiVersion: smolmind.dev/v1alpha1
kind: AgentProfile
metadata:
  name: Poet
  labels:
    tone: playful
spec:
  description: Writes verse.
  systemPrompt: You are the Poet agent.
---
kind: RoutingTable
metadata:
  name: routes
spec:
  defaultAgent: Poet
  routes:
    - keyword: poem
      agent: Poet
    - keyword: haiku
      agent: Poet
`

func TestParseAgentTable(t *testing.T) {
	resources, err := ParseBytes([]byte(agentsYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}

	profile, ok := resources[0].(*v1alpha1.AgentProfile)
	if !ok {
		t.Fatalf("expected *v1alpha1.AgentProfile, got %T", resources[0])
	}
	if profile.Metadata.Name != "Poet" {
		t.Errorf("expected name Poet, got %s", profile.Metadata.Name)
	}
	if profile.Metadata.Labels["tone"] != "playful" {
		t.Errorf("expected label tone=playful, got %s", profile.Metadata.Labels["tone"])
	}
	if profile.Spec.SystemPrompt != "You are the Poet agent." {
		t.Errorf("expected system prompt, got %q", profile.Spec.SystemPrompt)
	}

	table, ok := resources[1].(*v1alpha1.RoutingTable)
	if !ok {
		t.Fatalf("expected *v1alpha1.RoutingTable, got %T", resources[1])
	}
	if table.APIVersion != v1alpha1.APIVersion {
		t.Errorf("expected default apiVersion %s, got %s", v1alpha1.APIVersion, table.APIVersion)
	}
	if table.Spec.DefaultAgent != "Poet" {
		t.Errorf("expected default agent Poet, got %s", table.Spec.DefaultAgent)
	}
	if len(table.Spec.Routes) != 2 || table.Spec.Routes[1].Keyword != "haiku" {
		t.Errorf("expected routes in document order, got %+v", table.Spec.Routes)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown kind", "kind: AgentPod\nmetadata:\n  name: x\n", "unknown resource kind"},
		{"missing name", "kind: AgentProfile\nspec:\n  systemPrompt: hi\n", "name must not be empty"},
		{"missing prompt", "kind: AgentProfile\nmetadata:\n  name: x\n", "needs a systemPrompt"},
		{"empty keyword", "kind: RoutingTable\nspec:\n  routes:\n    - keyword: ' '\n      agent: x\n", "empty keyword"},
		{"missing agent", "kind: RoutingTable\nspec:\n  routes:\n    - keyword: plan\n", "has no agent"},
		{"wrong version", "apiVersion: orca.dev/v1alpha1\nkind: AgentProfile\n", "unsupported apiVersion"},
		{"bad yaml", "kind: [", "decoding yaml document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.doc))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseSkipsEmptyDocuments(t *testing.T) {
	resources, err := ParseBytes([]byte("---\n---\n" + agentsYAML + "\n---\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resources) != 2 {
		t.Errorf("expected 2 resources, got %d", len(resources))
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	resources, err := ParseBytes([]byte(agentsYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, resources); err != nil {
		t.Fatalf("unexpected error encoding: %v", err)
	}
	if !strings.Contains(buf.String(), "---") {
		t.Errorf("expected multi-document output, got:\n%s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("unexpected error writing file: %v", err)
	}
	again, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error parsing encoded output: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(again))
	}
	if again[0].(*v1alpha1.AgentProfile).Spec.Description != "Writes verse." {
		t.Errorf("expected description to survive encoding")
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
