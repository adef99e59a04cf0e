package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	basePath   string
)

// NewRootCmd creates the top-level smolmind CLI command with all
// subcommands. Without a subcommand it starts a chat.
func NewRootCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "smolmind",
		Short: "Lightweight local assistant built from micro-agents",
		Long: `SmolMind routes every message to a micro-agent persona (Researcher,
Summarizer, Coder, Planner), asks a language model for an answer and lets
the model call local tools: summarize_file, todo and safe_shell.

Run without a subcommand to start chatting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.smolmind/config.yaml)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")
	cmd.PersistentFlags().StringVar(&basePath, "base-path", "", "Working directory for tools (default: current directory)")
	addChatFlags(cmd, opts)

	cmd.AddCommand(
		newChatCmd(),
		newToolsCmd(),
		newCallToolCmd(),
		newAgentsCmd(),
		newSessionsCmd(),
		newServeCmd(),
		newInitCmd(),
	)

	return cmd
}
