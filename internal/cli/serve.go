package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/toolbot/internal/daemon"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat gateway",
	Long: `Start the HTTP and WebSocket chat gateway.

Endpoints:
  POST /api/chat   answer a conversation
  GET  /api/tools  list the tool catalog
  GET  /ws         chat over WebSocket
  GET  /health     liveness
  GET  /metrics    Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	// Only watch a file that exists.
	watchPath := loader.GetConfigPath()
	if _, err := os.Stat(watchPath); err != nil {
		watchPath = ""
	}

	d, err := daemon.New(cfg, watchPath, log)
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case serveErr = <-d.Errors():
		log.Error().Err(serveErr).Msg("Gateway failed")
	}

	if err := d.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop daemon")
	}
	return serveErr
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
