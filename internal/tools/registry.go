// Package tools implements the tool registry the agent core dispatches to,
// together with the built-in summarize_file, todo and safe_shell tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// Validator is implemented by typed tool inputs that need checks the schema
// cannot express. It may also normalise the input in place.
type Validator interface {
	Validate() []FieldError
}

// Spec describes a tool and how to execute it.
type Spec struct {
	Name        string
	Description string
	Schema      Schema

	validate  func(raw map[string]any) (any, []FieldError)
	handler   func(ctx context.Context, args any, tc *Context) (string, error)
	schemaErr error
}

// NewSpec builds a Spec whose raw arguments are checked against schema and
// decoded into T before handler runs. A schema that fails to compile is
// reported by Registry.Register.
func NewSpec[T any](name, description string, schema Schema, handler func(ctx context.Context, in T, tc *Context) (string, error)) *Spec {
	compiled, err := schema.compile()
	spec := &Spec{
		Name:        name,
		Description: description,
		Schema:      schema,
		handler: func(ctx context.Context, args any, tc *Context) (string, error) {
			return handler(ctx, args.(T), tc)
		},
	}
	if err != nil {
		spec.schemaErr = err
		return spec
	}
	spec.validate = func(raw map[string]any) (any, []FieldError) {
		return decodeArgs[T](compiled, schema, raw)
	}
	return spec
}

func decodeArgs[T any](compiled *gojsonschema.Schema, schema Schema, raw map[string]any) (T, []FieldError) {
	var in T
	params := schema.withDefaults(raw)
	if errs := check(compiled, params); len(errs) > 0 {
		return in, errs
	}

	buf, err := json.Marshal(params)
	if err != nil {
		return in, []FieldError{{Field: "args", Reason: err.Error()}}
	}
	if err := json.Unmarshal(buf, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field, _, _ := strings.Cut(typeErr.Field, ".")
			return in, []FieldError{{Field: field, Reason: fmt.Sprintf("expected %s but got %s", typeErr.Type, typeErr.Value)}}
		}
		return in, []FieldError{{Field: "args", Reason: err.Error()}}
	}

	if v, ok := any(&in).(Validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			return in, errs
		}
	}
	return in, nil
}

// Run validates raw against the tool's schema and invokes the handler.
func (s *Spec) Run(ctx context.Context, raw map[string]any, tc *Context) (string, error) {
	args, fieldErrs := s.validate(raw)
	if len(fieldErrs) > 0 {
		return "", &ValidationError{Tool: s.Name, Fields: fieldErrs}
	}
	return s.handler(ctx, args, tc)
}

// Registry keeps track of the tools exposed to the agent.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Spec
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]*Spec),
		logger: logger,
	}
}

// Register adds a tool. Registering a name twice is a configuration error.
func (r *Registry) Register(spec *Spec) error {
	if spec == nil {
		return fmt.Errorf("tool spec is nil")
	}
	if spec.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if spec.schemaErr != nil {
		return fmt.Errorf("tool %s: %w", spec.Name, spec.schemaErr)
	}
	if spec.handler == nil || spec.validate == nil {
		return fmt.Errorf("tool %s was not built with NewSpec", spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, spec.Name)
	}
	r.tools[spec.Name] = spec
	r.logger.Debug("registered tool", zap.String("tool", spec.Name))
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static registration at startup.
func (r *Registry) MustRegister(spec *Spec) {
	if err := r.Register(spec); err != nil {
		panic(fmt.Sprintf("failed to register tool: %v", err))
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
	return spec, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns a name -> description mapping for prompt rendering.
func (r *Registry) Describe() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.tools))
	for name, spec := range r.tools {
		out[name] = spec.Description
	}
	return out
}

// Infos lists the registered tools sorted by name.
func (r *Registry) Infos() []v1alpha1.ToolInfo {
	described := r.Describe()
	infos := make([]v1alpha1.ToolInfo, 0, len(described))
	for _, name := range r.Names() {
		infos = append(infos, v1alpha1.ToolInfo{Name: name, Description: described[name]})
	}
	return infos
}

// Call validates args and runs the named tool. Handler errors are returned
// unchanged.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any, tc *Context) (string, error) {
	spec, err := r.Get(name)
	if err != nil {
		return "", err
	}
	if args == nil {
		args = map[string]any{}
	}

	r.logger.Debug("calling tool", zap.String("tool", name), zap.Any("args", args))
	out, err := spec.Run(ctx, args, tc)
	if err != nil {
		r.logger.Debug("tool failed", zap.String("tool", name), zap.Error(err))
		return "", err
	}
	return out, nil
}
