// Package model wraps the language model backends the agent core talks to.
// Every backend satisfies Gateway; Cache opens and reuses them per Settings.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// Supported backends.
const (
	BackendOpenAI    = "openai"
	BackendClaudeCLI = "claude-cli"
	BackendNone      = "none"
)

var (
	// ErrEmptyOutput is returned when a backend produced no text.
	ErrEmptyOutput = errors.New("model returned an empty response")

	// ErrNotConfigured is returned by the Unconfigured gateway.
	ErrNotConfigured = errors.New("model backend not configured")
)

// Message is one role-tagged entry sent to a backend. Name carries the tool
// name for tool-role messages.
type Message struct {
	Role    v1alpha1.Role
	Content string
	Name    string
}

// Settings controls which backend is used and how it samples.
type Settings struct {
	Backend      string
	ModelID      string
	BaseURL      string
	APIKey       string
	CLIBin       string
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	Timeout      time.Duration
}

// Gateway turns an ordered message list into one generated reply.
// Implementations must return an error instead of blank text.
type Gateway interface {
	Generate(ctx context.Context, messages []Message, settings Settings) (string, error)
}

// Open builds the gateway for settings.Backend.
func Open(settings Settings, logger *zap.Logger) (Gateway, error) {
	switch settings.Backend {
	case BackendOpenAI:
		return NewOpenAIGateway(settings, logger), nil
	case BackendClaudeCLI:
		return NewCLIGateway(settings.CLIBin, logger), nil
	case BackendNone, "":
		return Unconfigured{}, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q (available: %s, %s, %s)",
			settings.Backend, BackendOpenAI, BackendClaudeCLI, BackendNone)
	}
}

// Unconfigured is the gateway used when no backend has been set up.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, []Message, Settings) (string, error) {
	return "", fmt.Errorf("%w: set model.backend in the config file or SMOLMIND_BACKEND", ErrNotConfigured)
}
