package tools

import "go.uber.org/zap"

// Built-in tool names.
const (
	SummarizeFileName = "summarize_file"
	TodoName          = "todo"
	SafeShellName     = "safe_shell"
)

// LoadDefaults returns a registry holding the built-in tool suite.
func LoadDefaults(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	r.MustRegister(SummarizeFileSpec())
	r.MustRegister(TodoSpec())
	r.MustRegister(SafeShellSpec())
	return r
}
