// Package speech holds the optional voice capabilities of the chat loop.
// Both directions are plain interfaces with an Unconfigured variant; the
// command-backed implementations delegate to external programs such as
// whisper.cpp or espeak.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by the Unconfigured capabilities.
var ErrNotConfigured = errors.New("speech not configured")

// Recognizer captures one utterance and returns its transcript. An empty
// transcript means silence.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// Synthesizer speaks text aloud.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Unconfigured satisfies both interfaces and always fails.
type Unconfigured struct{}

func (Unconfigured) Listen(context.Context) (string, error) {
	return "", fmt.Errorf("%w: set speech.recognizeCommand in the config file", ErrNotConfigured)
}

func (Unconfigured) Speak(context.Context, string) error {
	return fmt.Errorf("%w: set speech.speakCommand in the config file", ErrNotConfigured)
}

// CommandRecognizer runs a program that records audio and prints the
// transcript on stdout.
type CommandRecognizer struct {
	argv   []string
	logger *zap.Logger
}

// CommandSynthesizer runs a program that reads text on stdin and speaks it.
type CommandSynthesizer struct {
	argv   []string
	logger *zap.Logger
}

// New returns the recognizer and synthesizer for the given command lines.
// An empty command line yields Unconfigured for that direction.
func New(recognizeCommand, speakCommand string, logger *zap.Logger) (Recognizer, Synthesizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var rec Recognizer = Unconfigured{}
	if strings.TrimSpace(recognizeCommand) != "" {
		argv, err := shlex.Split(recognizeCommand)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing recognize command: %w", err)
		}
		rec = &CommandRecognizer{argv: argv, logger: logger}
	}

	var syn Synthesizer = Unconfigured{}
	if strings.TrimSpace(speakCommand) != "" {
		argv, err := shlex.Split(speakCommand)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing speak command: %w", err)
		}
		syn = &CommandSynthesizer{argv: argv, logger: logger}
	}
	return rec, syn, nil
}

func (r *CommandRecognizer) Listen(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.argv[0], r.argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running speech recognizer", zap.Strings("argv", r.argv))
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("speech recognizer %s: %w: %s", r.argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (s *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr

	s.logger.Debug("running speech synthesizer", zap.Strings("argv", s.argv), zap.Int("chars", len(text)))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speech synthesizer %s: %w: %s", s.argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
