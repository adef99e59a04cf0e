package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/klubi/smolmind/internal/apiserver"
	"github.com/klubi/smolmind/internal/logging"
	"github.com/klubi/smolmind/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		dataDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SmolMind chat API server",
		Long:  "Serve the agent core, the tool registry and persisted chat sessions over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Build configuration with CLI overrides.
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.Store.DataDir = dataDir
			}

			// 2. Create logger.
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			// 3. Open the conversation store.
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			// 4. Wire the agent core.
			core, err := buildCore(cfg, logger)
			if err != nil {
				return err
			}

			// 5. Create the API server.
			apiSrv := apiserver.NewServer(cfg.ServerAddress(), core, store.NewConversations(s), logger)

			banner := color.New(color.FgCyan, color.Bold)
			banner.Println("SmolMind API Server")
			fmt.Printf("   Address:    http://%s\n", cfg.ServerAddress())
			fmt.Printf("   Backend:    %s (%s)\n", cfg.Model.Backend, cfg.Model.ModelID)
			fmt.Printf("   Tools base: %s\n", core.ToolContext().BasePath)
			if cfg.Store.Type == "bolt" {
				fmt.Printf("   DB Path:    %s\n", cfg.DBPath())
			} else {
				fmt.Printf("   Store:      %s\n", cfg.Store.Type)
			}
			fmt.Println()

			// 6. Serve until a signal arrives or the listener fails.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := apiSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("API server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down gracefully...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := apiSrv.Shutdown(shutdownCtx); err != nil {
					logger.Error("API server shutdown error", zap.Error(err))
				}
				return nil
			})

			if err := g.Wait(); err != nil {
				return err
			}
			logger.Info("SmolMind API server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 7118, "API server port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "API server host")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.smolmind/data)")

	return cmd
}
