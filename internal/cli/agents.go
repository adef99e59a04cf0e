package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List micro-agents and their routing keywords",
		Long: `List the agent profiles in routing order. A message goes to the first
agent (top to bottom) owning a keyword found in the message; otherwise the
default agent answers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			core, err := buildCore(cfg, zap.NewNop())
			if err != nil {
				return err
			}

			agents := core.AvailableAgents()
			rows := make([][]string, 0, len(agents))
			for _, a := range agents {
				def := ""
				if a.Default {
					def = "*"
				}
				keywords := strings.Join(a.Keywords, ", ")
				if keywords == "" {
					keywords = "<none>"
				}
				rows = append(rows, []string{a.Name, def, keywords, a.Description})
			}
			return printOutput(cmd.OutOrStdout(), agents, []string{"NAME", "DEFAULT", "KEYWORDS", "DESCRIPTION"}, rows)
		},
	}
}
