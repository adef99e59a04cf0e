package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/klubi/smolmind/internal/agent"
	"github.com/klubi/smolmind/internal/config"
	"github.com/klubi/smolmind/internal/model"
	"github.com/klubi/smolmind/internal/store"
	"github.com/klubi/smolmind/internal/tools"
	"github.com/klubi/smolmind/pkg/manifest"
)

// loadConfig reads the config file named by --config (or the default one)
// and applies the --base-path override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if basePath != "" {
		cfg.Tools.BasePath = basePath
	}
	return cfg, nil
}

// loadTable returns the agent table configured by agent.tableFile, or the
// built-in one.
func loadTable(cfg *config.Config) (agent.Table, error) {
	if cfg.Agent.TableFile == "" {
		return agent.DefaultTable(), nil
	}
	resources, err := manifest.ParseFile(cfg.Agent.TableFile)
	if err != nil {
		return agent.Table{}, err
	}
	table, err := agent.TableFromResources(resources)
	if err != nil {
		return agent.Table{}, fmt.Errorf("agent table %s: %w", cfg.Agent.TableFile, err)
	}
	return table, nil
}

// newToolContext builds the shared tool context from the tools section.
func newToolContext(cfg *config.Config) (*tools.Context, error) {
	return tools.NewContext(cfg.Tools.BasePath, cfg.Tools.DataSubdir)
}

// buildCore wires the registry, model gateway and agent table into a Core.
func buildCore(cfg *config.Config, logger *zap.Logger) (*agent.Core, error) {
	tc, err := newToolContext(cfg)
	if err != nil {
		return nil, err
	}
	table, err := loadTable(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Agent.DefaultAgent != "" {
		table.DefaultAgent = cfg.Agent.DefaultAgent
	}

	gateway := model.NewCache(model.DefaultCacheSize, nil, logger)
	return agent.NewCore(gateway, tools.LoadDefaults(logger), tc,
		agent.WithTable(table),
		agent.WithSettings(cfg.ModelSettings()),
		agent.WithHistoryWindow(cfg.Agent.HistoryWindow),
		agent.WithLogger(logger),
	)
}

// openStore opens the configured conversation store.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		if err := os.MkdirAll(cfg.Store.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", cfg.Store.DataDir, err)
		}
		s, err := store.NewBoltStore(cfg.DBPath())
		if err != nil {
			return nil, fmt.Errorf("opening store at %s: %w", cfg.DBPath(), err)
		}
		return s, nil
	}
}
