package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
)

const shellDescription = "Execute a whitelisted shell command for quick system checks."

// SafeCommands is the fixed allow-list of read-only inspection commands.
var SafeCommands = map[string]bool{
	"ls":     true,
	"pwd":    true,
	"whoami": true,
	"uname":  true,
	"date":   true,
	"cat":    true,
	"head":   true,
	"tail":   true,
}

// SafeCommandNames returns the allow-list in sorted order.
func SafeCommandNames() []string {
	names := make([]string, 0, len(SafeCommands))
	for name := range SafeCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Command accepts either a shell-style string or a pre-split argument list.
type Command []string

func (c *Command) UnmarshalJSON(data []byte) error {
	var line string
	if err := json.Unmarshal(data, &line); err == nil {
		parts, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("splitting command: %w", err)
		}
		*c = parts
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return &json.UnmarshalTypeError{
			Value: "non-string command",
			Type:  reflect.TypeOf(parts),
		}
	}
	*c = parts
	return nil
}

// SafeShellInput is the argument payload of safe_shell.
type SafeShellInput struct {
	Command Command `json:"command"`
	Timeout int     `json:"timeout"`
}

func (in *SafeShellInput) Validate() []FieldError {
	if len(in.Command) == 0 || strings.TrimSpace(in.Command[0]) == "" {
		return []FieldError{{Field: "command", Reason: "command cannot be empty"}}
	}
	return nil
}

// SafeShellSpec returns the safe_shell tool.
func SafeShellSpec() *Spec {
	return NewSpec(SafeShellName, shellDescription, Schema{
		Required: []string{"command"},
		Properties: map[string]Property{
			"command": {
				Types:       []string{"string", "array"},
				Items:       &Property{Type: "string"},
				Description: "Command to execute. Provide either a string or pre-split list.",
			},
			"timeout": {
				Type:        "integer",
				Description: "Maximum execution time in seconds.",
				Minimum:     Bound(1),
				Maximum:     Bound(60),
				Default:     10,
			},
		},
	}, SafeShell)
}

// SafeShell runs an allow-listed command inside the base path.
func SafeShell(ctx context.Context, in SafeShellInput, tc *Context) (string, error) {
	executable := in.Command[0]
	if !SafeCommands[executable] {
		return "", fmt.Errorf("%w: command '%s' is not in the safe whitelist: [%s]",
			ErrPermission, executable, strings.Join(SafeCommandNames(), ", "))
	}

	timeout := time.Duration(in.Timeout) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, executable, in.Command[1:]...)
	cmd.Dir = tc.BasePath
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: command '%s' timed out after %d seconds", ErrTimeout, executable, in.Timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: command '%s' failed (%d): %s",
				ErrExecution, executable, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%w: command '%s': %v", ErrExecution, executable, err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "(no output)", nil
	}
	return out, nil
}
