package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klubi/smolmind/internal/tools"
	v1alpha1 "github.com/klubi/smolmind/pkg/apis/v1alpha1"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available SmolMind tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := tools.LoadDefaults(nil).Infos()
			out := cmd.OutOrStdout()

			if outputFormat == "table" {
				bold := color.New(color.Bold)
				for _, info := range infos {
					bold.Fprint(out, info.Name)
					fmt.Fprintf(out, ": %s\n", info.Description)
				}
				return nil
			}
			return printOutput(out, infos, nil, nil)
		},
	}
}

func newCallToolCmd() *cobra.Command {
	var rawArgs string

	cmd := &cobra.Command{
		Use:   "call-tool NAME",
		Short: "Invoke a tool directly from the CLI",
		Example: `  smolmind call-tool todo -a '{"operation": "add", "title": "Buy milk"}'
  smolmind call-tool summarize_file -a '{"path": "README.md", "max_sentences": 3}'
  smolmind call-tool safe_shell -a '{"command": "ls -la"}' --base-path /tmp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			payload := map[string]any{}
			if err := json.Unmarshal([]byte(rawArgs), &payload); err != nil {
				return fmt.Errorf("invalid JSON payload: %w", err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tc, err := newToolContext(cfg)
			if err != nil {
				return err
			}

			output, err := tools.LoadDefaults(nil).Call(cmd.Context(), name, payload, tc)
			if err != nil {
				return fmt.Errorf("tool execution failed: %w", err)
			}

			if outputFormat == "table" {
				fmt.Fprintln(cmd.OutOrStdout(), output)
				return nil
			}
			return printOutput(cmd.OutOrStdout(), v1alpha1.ToolCallResult{Tool: name, Output: output}, nil, nil)
		},
	}

	cmd.Flags().StringVarP(&rawArgs, "args", "a", "{}", "JSON payload containing tool arguments")

	return cmd
}
