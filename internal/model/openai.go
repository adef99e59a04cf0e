package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

// OpenAIGateway talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, Ollama, llama.cpp server, vLLM).
type OpenAIGateway struct {
	client openai.Client
	logger *zap.Logger
}

// NewOpenAIGateway creates a gateway from the connection part of settings.
func NewOpenAIGateway(settings Settings, logger *zap.Logger) *OpenAIGateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.RequestOption
	if key := strings.TrimSpace(settings.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if base := strings.TrimRight(settings.BaseURL, "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if settings.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(settings.Timeout))
	}

	return &OpenAIGateway{
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

// Generate sends one chat completion request and returns the first choice.
func (g *OpenAIGateway) Generate(ctx context.Context, messages []Message, settings Settings) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(settings.ModelID),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(settings.Temperature),
		TopP:        openai.Float(settings.TopP),
	}
	if settings.MaxNewTokens > 0 {
		params.MaxTokens = openai.Int(int64(settings.MaxNewTokens))
	}

	g.logger.Debug("requesting chat completion",
		zap.String("model", settings.ModelID),
		zap.Int("messages", len(messages)),
	)

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion with %s: %w", settings.ModelID, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyOutput)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyOutput
	}

	g.logger.Debug("chat completion finished",
		zap.Int64("promptTokens", resp.Usage.PromptTokens),
		zap.Int64("completionTokens", resp.Usage.CompletionTokens),
	)
	return reply, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case v1alpha1.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case v1alpha1.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case v1alpha1.RoleTool:
			out = append(out, openai.UserMessage(toolResultText(m)))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
