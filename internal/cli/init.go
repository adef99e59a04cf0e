package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/klubi/smolmind/internal/agent"
	"github.com/klubi/smolmind/internal/config"
	"github.com/klubi/smolmind/pkg/manifest"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a SmolMind config and agent table",
		Long: `Write config.yaml and agents.yaml into dir (default: ~/.smolmind).

agents.yaml holds the built-in personas and keyword routes as AgentProfile
and RoutingTable manifests; config.yaml points agent.tableFile at it so you
can edit prompts and routes without rebuilding.`,
		Example: `  smolmind init
  smolmind init ./smolmind-config --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Dir(config.DefaultPath())
			if len(args) > 0 {
				dir = args[0]
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", dir, err)
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}

			configFile := filepath.Join(dir, "config.yaml")
			agentsFile := filepath.Join(dir, "agents.yaml")
			if !force {
				for _, path := range []string{configFile, agentsFile} {
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("file %s already exists. Use --force to overwrite", path)
					}
				}
			}

			var agents bytes.Buffer
			if err := manifest.Encode(&agents, agent.DefaultTable().Resources()); err != nil {
				return err
			}
			if err := os.WriteFile(agentsFile, agents.Bytes(), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", agentsFile, err)
			}

			cfg := config.DefaultConfig()
			cfg.Agent.TableFile = agentsFile
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			if err := os.WriteFile(configFile, data, 0600); err != nil {
				return fmt.Errorf("writing %s: %w", configFile, err)
			}

			out := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprintln(out, "SmolMind initialized!")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Config: %s\n", configFile)
			fmt.Fprintf(out, "  Agents: %s\n", agentsFile)
			fmt.Fprintln(out)

			color.New(color.Bold).Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Pick a model backend in the config (openai or claude-cli):")
			fmt.Fprintf(out, "     vi %s\n", configFile)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  2. Start chatting:")
			if dir == filepath.Dir(config.DefaultPath()) {
				fmt.Fprintln(out, "     smolmind")
			} else {
				fmt.Fprintf(out, "     smolmind --config %s\n", configFile)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  3. Or serve the chat API:")
			fmt.Fprintln(out, "     smolmind serve")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}
