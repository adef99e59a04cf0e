package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema describes the JSON object a tool accepts. It is compiled into a
// JSON Schema document and arguments are validated with gojsonschema.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// Property describes one argument. Types lists a union and takes precedence
// over Type; an empty Type and Types accepts any JSON value.
type Property struct {
	Type        string
	Types       []string
	Items       *Property
	Description string
	Enum        []string
	Minimum     *float64
	Maximum     *float64
	Default     any
}

// Bound is a helper for Property.Minimum and Property.Maximum literals.
func Bound(v float64) *float64 {
	return &v
}

// Document renders the schema as a JSON Schema object.
func (s Schema) Document() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, prop := range s.Properties {
		props[name] = prop.document()
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	return doc
}

func (p Property) document() map[string]any {
	doc := map[string]any{}
	switch {
	case len(p.Types) > 0:
		doc["type"] = p.Types
	case p.Type != "":
		doc["type"] = p.Type
	}
	if p.Items != nil {
		doc["items"] = p.Items.document()
	}
	if p.Description != "" {
		doc["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		doc["enum"] = p.Enum
	}
	if p.Minimum != nil {
		doc["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		doc["maximum"] = *p.Maximum
	}
	if p.Default != nil {
		doc["default"] = p.Default
	}
	return doc
}

func (s Schema) compile() (*gojsonschema.Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.Document()))
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

// withDefaults copies params and fills in declared defaults. A null value
// counts as absent.
func (s Schema) withDefaults(params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+len(s.Properties))
	for k, v := range params {
		if v != nil {
			out[k] = v
		}
	}
	for name, prop := range s.Properties {
		if _, ok := out[name]; !ok && prop.Default != nil {
			out[name] = prop.Default
		}
	}
	return out
}

// check validates params against the compiled schema and returns one
// violation per top-level field, ordered by field name.
func check(compiled *gojsonschema.Schema, params map[string]any) []FieldError {
	raw, err := json.Marshal(params)
	if err != nil {
		return []FieldError{{Field: "args", Reason: err.Error()}}
	}
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return []FieldError{{Field: "args", Reason: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	seen := make(map[string]bool)
	var errs []FieldError
	for _, re := range result.Errors() {
		field := fieldOf(re)
		if seen[field] {
			continue
		}
		seen[field] = true
		errs = append(errs, FieldError{Field: field, Reason: re.Description()})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

// fieldOf maps a gojsonschema error to the top-level argument it concerns.
func fieldOf(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if name, ok := re.Details()["property"].(string); ok {
			return name
		}
	}
	field := re.Field()
	if field == "(root)" {
		return "args"
	}
	field, _, _ = strings.Cut(field, ".")
	return field
}
