// Package manifest provides YAML manifest parsing for SmolMind agent tables.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// ParseFile reads a YAML file at the given path and parses it into typed
// SmolMind resources. Multi-document YAML (separated by ---) is supported.
func ParseFile(path string) ([]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file %s: %w", path, err)
	}
	return ParseBytes(data)
}

// ParseBytes parses raw YAML bytes into typed SmolMind resources.
// Multi-document YAML (separated by ---) is supported.
func ParseBytes(data []byte) ([]interface{}, error) {
	return parseDocuments(data)
}

// Encode writes resources as multi-document YAML.
func Encode(w io.Writer, resources []interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, r := range resources {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding %T: %w", r, err)
		}
	}
	return enc.Close()
}

// parseDocuments splits multi-document YAML and decodes each document into
// its concrete resource type.
func parseDocuments(data []byte) ([]interface{}, error) {
	var resources []interface{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))

	for {
		var node yaml.Node
		if err := decoder.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decoding yaml document: %w", err)
		}

		if node.Kind == 0 {
			continue
		}

		// First pass: extract TypeMeta to determine the Kind.
		var meta v1alpha1.TypeMeta
		if err := node.Decode(&meta); err != nil {
			return nil, fmt.Errorf("decoding type meta: %w", err)
		}
		if meta.Kind == "" && meta.APIVersion == "" {
			continue
		}
		if meta.APIVersion != "" && meta.APIVersion != v1alpha1.APIVersion {
			return nil, fmt.Errorf("unsupported apiVersion %q for %s (expected %s)", meta.APIVersion, meta.Kind, v1alpha1.APIVersion)
		}

		// Second pass: decode into the concrete type based on Kind.
		resource, err := decodeResource(&node, meta.Kind)
		if err != nil {
			return nil, err
		}

		setDefaultAPIVersion(resource)

		if err := validateResource(resource); err != nil {
			return nil, err
		}

		resources = append(resources, resource)
	}

	return resources, nil
}

// decodeResource unmarshals a yaml.Node into the correct concrete type
// based on the resource Kind.
func decodeResource(node *yaml.Node, kind string) (interface{}, error) {
	switch kind {
	case v1alpha1.KindAgentProfile:
		var r v1alpha1.AgentProfile
		if err := node.Decode(&r); err != nil {
			return nil, fmt.Errorf("decoding AgentProfile: %w", err)
		}
		return &r, nil

	case v1alpha1.KindRoutingTable:
		var r v1alpha1.RoutingTable
		if err := node.Decode(&r); err != nil {
			return nil, fmt.Errorf("decoding RoutingTable: %w", err)
		}
		return &r, nil

	default:
		return nil, fmt.Errorf("unknown resource kind: %q", kind)
	}
}

func setDefaultAPIVersion(resource interface{}) {
	switch r := resource.(type) {
	case *v1alpha1.AgentProfile:
		if r.APIVersion == "" {
			r.APIVersion = v1alpha1.APIVersion
		}
	case *v1alpha1.RoutingTable:
		if r.APIVersion == "" {
			r.APIVersion = v1alpha1.APIVersion
		}
	}
}

// validateResource checks that required fields are set on the resource.
func validateResource(resource interface{}) error {
	switch r := resource.(type) {
	case *v1alpha1.AgentProfile:
		if r.Metadata.Name == "" {
			return fmt.Errorf("validation failed: AgentProfile name must not be empty")
		}
		if strings.TrimSpace(r.Spec.SystemPrompt) == "" {
			return fmt.Errorf("validation failed: AgentProfile %s needs a systemPrompt", r.Metadata.Name)
		}
	case *v1alpha1.RoutingTable:
		for i, route := range r.Spec.Routes {
			if strings.TrimSpace(route.Keyword) == "" {
				return fmt.Errorf("validation failed: RoutingTable route %d has an empty keyword", i)
			}
			if route.Agent == "" {
				return fmt.Errorf("validation failed: RoutingTable route %q has no agent", route.Keyword)
			}
		}
	}
	return nil
}
