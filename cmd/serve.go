package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/shadowcast/internal/config"
	"github.com/cwbudde/shadowcast/internal/server"
	"github.com/cwbudde/shadowcast/internal/store"
)

var (
	serveAddr    string
	serveDataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server",
	Long: `Serves render jobs, interactive previews and progress streams over HTTP.
Finished renders are stored in the data directory and stay available
after a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Data directory (default from config, ./data)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.Flags{Addr: serveAddr, DataDir: serveDataDir})
	if err != nil {
		return err
	}

	st, err := store.NewFSStore(cfg.Server.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create render store: %w", err)
	}

	srv := server.NewServer(cfg.Server.Addr, st, cfg.Params())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		slog.Info("Received signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
