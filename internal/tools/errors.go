package tools

import (
	"errors"
	"fmt"
	"strings"
)

// Tool registry and tool execution errors.
var (
	// ErrAlreadyRegistered is returned when registering a duplicate name.
	ErrAlreadyRegistered = errors.New("tool already registered")

	// ErrUnknownTool is returned when calling a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrValidation is wrapped by every argument validation failure.
	ErrValidation = errors.New("invalid tool arguments")

	ErrNotFound     = errors.New("not found")
	ErrIsADirectory = errors.New("is a directory")
	ErrPermission   = errors.New("permission denied")
	ErrTimeout      = errors.New("timed out")
	ErrExecution    = errors.New("execution failed")
)

// FieldError names one violated argument.
type FieldError struct {
	Field  string
	Reason string
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Reason
}

// ValidationError reports every argument a tool rejected.
type ValidationError struct {
	Tool   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("invalid payload for tool %q: %s", e.Tool, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
