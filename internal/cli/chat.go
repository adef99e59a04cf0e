package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/smolmind/internal/agent"
	"github.com/klubi/smolmind/internal/config"
	"github.com/klubi/smolmind/internal/logging"
	"github.com/klubi/smolmind/internal/speech"
	"github.com/klubi/smolmind/internal/store"
	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
	"github.com/klubi/smolmind/pkg/client"
)

type chatOptions struct {
	voice   bool
	verbose bool
	agent   string
	session string
	server  string
}

func addChatFlags(cmd *cobra.Command, opts *chatOptions) {
	cmd.Flags().BoolVar(&opts.voice, "voice", false, "Enable speech recognition + TTS")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show raw tool requests and info logs")
	cmd.Flags().StringVar(&opts.agent, "agent", "", "Pin the default micro-agent")
	cmd.Flags().StringVar(&opts.session, "session", "", "Persist and resume the conversation under this name")
	cmd.Flags().StringVar(&opts.server, "server", "", "Chat through a running API server (e.g. http://127.0.0.1:7118)")
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Launch a chat loop with the SmolMind assistant",
		Example: `  smolmind chat
  smolmind chat --agent Planner -v
  smolmind chat --session groceries
  smolmind chat --server http://127.0.0.1:7118`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
	addChatFlags(cmd, opts)
	return cmd
}

// turnRunner processes one user input, locally or through the API server.
type turnRunner interface {
	Turn(ctx context.Context, text string) (*v1alpha1.Turn, error)
	Close() error
}

type localRunner struct {
	core  *agent.Core
	state *agent.State
	convs *store.Conversations
	conv  *v1alpha1.Conversation
	store store.Store
}

func (r *localRunner) Turn(ctx context.Context, text string) (*v1alpha1.Turn, error) {
	turn, err := r.core.ProcessTurn(ctx, text, r.state)
	if err != nil {
		return nil, err
	}
	if r.conv != nil {
		r.conv.History = r.state.History
		if err := r.convs.Save(r.conv); err != nil {
			return nil, err
		}
	}
	return turn, nil
}

func (r *localRunner) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

type remoteRunner struct {
	client  *client.Client
	session string
}

func (r *remoteRunner) Turn(_ context.Context, text string) (*v1alpha1.Turn, error) {
	return r.client.SendTurn(r.session, text)
}

func (r *remoteRunner) Close() error { return nil }

func newLocalRunner(w io.Writer, cfg *config.Config, opts *chatOptions, logger *zap.Logger) (*localRunner, error) {
	core, err := buildCore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if opts.agent != "" {
		if err := core.SetDefaultAgent(opts.agent); err != nil {
			warnColor.Fprintf(w, "Unknown agent '%s'. Using automatic routing instead.\n", opts.agent)
		}
	}

	r := &localRunner{core: core, state: agent.NewState()}
	if opts.session == "" {
		return r, nil
	}

	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	r.store = s
	r.convs = store.NewConversations(s)
	r.conv, err = r.convs.Open(opts.session)
	if err != nil {
		s.Close()
		return nil, err
	}
	r.state = agent.NewState(r.conv.History...)
	if n := len(r.conv.History); n > 0 {
		infoColor.Fprintf(w, "Resumed session %s (%d messages).\n", opts.session, n)
	}
	return r, nil
}

func newRemoteRunner(w io.Writer, opts *chatOptions) (*remoteRunner, error) {
	c := client.New(opts.server)
	if err := c.Healthz(); err != nil {
		return nil, fmt.Errorf("server %s is not reachable: %w", opts.server, err)
	}
	if opts.agent != "" {
		warnColor.Fprintln(w, "--agent is ignored when chatting through a server.")
	}

	name := opts.session
	if name != "" {
		_, err := c.GetSession(name)
		if err == nil {
			infoColor.Fprintf(w, "Resumed session %s.\n", name)
			return &remoteRunner{client: c, session: name}, nil
		}
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			return nil, err
		}
	}
	conv, err := c.CreateSession(name)
	if err != nil {
		return nil, err
	}
	return &remoteRunner{client: c, session: conv.Metadata.Name}, nil
}

func runChat(cmd *cobra.Command, opts *chatOptions) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.Quiet(cfg.Log, opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var runner turnRunner
	if opts.server != "" {
		runner, err = newRemoteRunner(out, opts)
	} else {
		runner, err = newLocalRunner(out, cfg, opts, logger)
	}
	if err != nil {
		return err
	}
	defer runner.Close()

	recognizer, synthesizer, err := speech.New(cfg.Speech.RecognizeCommand, cfg.Speech.SpeakCommand, logger)
	if err != nil {
		return err
	}

	color.New(color.FgMagenta, color.Bold).Fprint(out, "SmolMind")
	fmt.Fprintln(out, " - lightweight local assistant. Type 'exit' to quit.")

	voice := opts.voice
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		var userText string
		if voice {
			infoColor.Fprintln(out, "Listening...")
			heard, err := recognizer.Listen(ctx)
			if err != nil {
				errColor.Fprintln(out, err)
				warnColor.Fprintln(out, "Voice mode disabled for this session. Re-run with --voice after configuring speech.")
				voice = false
				continue
			}
			if heard == "" {
				warnColor.Fprintln(out, "Heard silence. Say something or disable --voice.")
				continue
			}
			userColor.Fprint(out, "You")
			fmt.Fprintf(out, ": %s\n", heard)
			userText = heard
		} else {
			userColor.Fprint(out, "You: ")
			if !scanner.Scan() {
				errColor.Fprintln(out, "\nSession ended.")
				return scanner.Err()
			}
			userText = scanner.Text()
		}

		switch strings.ToLower(strings.TrimSpace(userText)) {
		case "exit", "quit":
			infoColor.Fprintln(out, "Goodbye!")
			return nil
		case "":
			continue
		}

		turn, err := runner.Turn(ctx, userText)
		if err != nil {
			errColor.Fprintf(out, "Error: %v\n", err)
			continue
		}
		renderTurn(out, turn, opts.verbose)

		if voice {
			if err := synthesizer.Speak(ctx, turn.Text); err != nil {
				warnColor.Fprintf(out, "Voice response skipped: %v\n", err)
			}
		}
	}
}
