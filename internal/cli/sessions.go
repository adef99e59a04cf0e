package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klubi/smolmind/internal/store"
	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
	"github.com/klubi/smolmind/pkg/client"
)

// sessionBackend is the subset of session operations shared by the local
// store and the API client.
type sessionBackend interface {
	list() ([]v1alpha1.SessionSummary, error)
	get(name string) (*v1alpha1.Conversation, error)
	remove(name string) error
	close() error
}

type localSessions struct {
	store store.Store
	convs *store.Conversations
}

func (l *localSessions) list() ([]v1alpha1.SessionSummary, error) {
	convs, err := l.convs.List()
	if err != nil {
		return nil, err
	}
	out := make([]v1alpha1.SessionSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.Summary())
	}
	return out, nil
}

func (l *localSessions) get(name string) (*v1alpha1.Conversation, error) { return l.convs.Get(name) }
func (l *localSessions) remove(name string) error                     { return l.convs.Delete(name) }
func (l *localSessions) close() error                                 { return l.store.Close() }

type remoteSessions struct {
	client *client.Client
}

func (r *remoteSessions) list() ([]v1alpha1.SessionSummary, error) { return r.client.ListSessions() }
func (r *remoteSessions) get(name string) (*v1alpha1.Conversation, error) {
	return r.client.GetSession(name)
}
func (r *remoteSessions) remove(name string) error { return r.client.DeleteSession(name) }
func (r *remoteSessions) close() error             { return nil }

func openSessions(server string) (sessionBackend, error) {
	if server != "" {
		return &remoteSessions{client: client.New(server)}, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return &localSessions{store: s, convs: store.NewConversations(s)}, nil
}

func newSessionsCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Inspect persisted chat sessions",
	}
	cmd.PersistentFlags().StringVar(&server, "server", "", "Read sessions from a running API server instead of the local store")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List sessions, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				backend, err := openSessions(server)
				if err != nil {
					return err
				}
				defer backend.close()

				summaries, err := backend.list()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{s.Name, strconv.Itoa(s.Messages), formatAge(s.CreatedAt), formatAge(s.UpdatedAt)})
				}
				return printOutput(cmd.OutOrStdout(), summaries, []string{"NAME", "MESSAGES", "AGE", "UPDATED"}, rows)
			},
		},
		&cobra.Command{
			Use:   "show NAME",
			Short: "Print a session's history",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				backend, err := openSessions(server)
				if err != nil {
					return err
				}
				defer backend.close()

				conv, err := backend.get(args[0])
				if err != nil {
					return err
				}
				if outputFormat != "table" {
					return printOutput(cmd.OutOrStdout(), conv, nil, nil)
				}
				describeConversation(cmd.OutOrStdout(), conv)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				backend, err := openSessions(server)
				if err != nil {
					return err
				}
				defer backend.close()

				if err := backend.remove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "session %q deleted\n", args[0])
				return nil
			},
		},
	)

	return cmd
}

func describeConversation(w io.Writer, conv *v1alpha1.Conversation) {
	bold := color.New(color.Bold)

	bold.Fprintln(w, "Session:")
	printField(w, "  Name", conv.Metadata.Name)
	printField(w, "  UID", conv.Metadata.UID)
	printField(w, "  Created", conv.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	printField(w, "  Updated", conv.Metadata.UpdatedAt.Format("2006-01-02 15:04:05"))
	printField(w, "  Messages", strconv.Itoa(len(conv.History)))
	fmt.Fprintln(w)

	bold.Fprintln(w, "History:")
	for _, m := range conv.History {
		speaker := string(m.Role)
		switch {
		case m.Role == v1alpha1.RoleAssistant && m.Agent != "":
			speaker = m.Agent
		case m.Role == v1alpha1.RoleTool:
			speaker = "tool:" + m.ToolName
		}
		fmt.Fprintf(w, "  [%s] %s\n", speaker, m.Content)
	}
}
