package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// CLIGateway wraps the local Claude CLI in print mode. It uses the user's
// local Claude subscription instead of a raw API key.
type CLIGateway struct {
	cliBin string
	logger *zap.Logger
}

// NewCLIGateway creates a gateway that shells out to cliBin.
// If cliBin is empty, it defaults to "claude" (resolved via PATH).
func NewCLIGateway(cliBin string, logger *zap.Logger) *CLIGateway {
	if cliBin == "" {
		cliBin = "claude"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIGateway{cliBin: cliBin, logger: logger}
}

// cliResponse maps the JSON output of `claude -p --output-format json`.
type cliResponse struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	IsError    bool    `json:"is_error"`
	Result     string  `json:"result"`
	DurationMs int     `json:"duration_ms"`
	TotalCost  float64 `json:"total_cost_usd"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate flattens the conversation into one prompt and runs the CLI.
// System messages travel through --system-prompt.
func (g *CLIGateway) Generate(ctx context.Context, messages []Message, settings Settings) (string, error) {
	var system []string
	var turns []Message
	for _, m := range messages {
		switch m.Role {
		case v1alpha1.RoleSystem:
			system = append(system, m.Content)
		case v1alpha1.RoleTool:
			turns = append(turns, Message{Role: v1alpha1.RoleUser, Content: toolResultText(m)})
		default:
			turns = append(turns, m)
		}
	}

	args := []string{
		"-p", FormatPrompt(turns),
		"--output-format", "json",
	}
	if model := resolveModel(settings.ModelID); model != "" {
		args = append(args, "--model", model)
	}
	if len(system) > 0 {
		args = append(args, "--system-prompt", strings.Join(system, "\n\n"))
	}

	g.logger.Debug("executing claude CLI",
		zap.String("bin", g.cliBin),
		zap.String("model", settings.ModelID),
		zap.Int("messages", len(messages)),
	)

	cmd := exec.CommandContext(ctx, g.cliBin, args...)
	// Unset CLAUDECODE env var to allow nested invocation.
	cmd.Env = filterEnv(os.Environ(), "CLAUDECODE")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = err.Error()
		}
		return "", fmt.Errorf("claude CLI error: %s", strings.TrimSpace(errMsg))
	}

	return parseCLIOutput(stdout.Bytes(), g.logger)
}

func parseCLIOutput(raw []byte, logger *zap.Logger) (string, error) {
	var resp cliResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("parsing claude CLI output: %w", err)
	}
	if resp.IsError {
		return "", fmt.Errorf("claude CLI returned error: %s", resp.Result)
	}

	reply := strings.TrimSpace(resp.Result)
	if reply == "" {
		return "", ErrEmptyOutput
	}

	logger.Debug("claude CLI call completed",
		zap.Int("tokensIn", resp.Usage.InputTokens),
		zap.Int("tokensOut", resp.Usage.OutputTokens),
		zap.Float64("costUSD", resp.TotalCost),
		zap.Int("durationMs", resp.DurationMs),
	)
	return reply, nil
}

// resolveModel maps human-friendly shortnames to Claude CLI --model values.
func resolveModel(model string) string {
	switch model {
	case "claude-sonnet":
		return "sonnet"
	case "claude-haiku":
		return "haiku"
	case "claude-opus":
		return "opus"
	default:
		return model
	}
}

// filterEnv returns a copy of env with the given key removed.
func filterEnv(env []string, key string) []string {
	prefix := key + "="
	result := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			result = append(result, e)
		}
	}
	return result
}
