package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/gridlens/internal/api"
	"github.com/newthinker/gridlens/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var templatesDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GridLens server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&templatesDir, "templates", "", "load page templates from this directory instead of the embedded set")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	a, cfg, err := newApp(log)
	if err != nil {
		return err
	}

	log.Info("starting GridLens server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	server, err := api.NewServer(a.ServerConfig(templatesDir), a.ServerDeps(), logger.Component(log, "api"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscribe before the listener opens so no commit slips past the dashboard.
	if err := a.Open(ctx); err != nil {
		return err
	}
	appDone := make(chan error, 1)
	go func() {
		appDone <- a.Run()
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
		a.Stop()
	}

	log.Info("shutting down GridLens server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	a.Stop()
	if err := <-appDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return shutdownErr
}
