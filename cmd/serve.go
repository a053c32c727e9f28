package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"github.com/xhad/copilot/pkg/tickets"
	"github.com/xhad/copilot/server"
)

var (
	serveAddr     string
	serveNoIntake bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to server.addr)")
	serveCmd.Flags().BoolVar(&serveNoIntake, "no-intake", false, "disable the SQLite ticket intake store")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	seed := tickets.NewFileSource(cfg.Tickets.SeedFile)
	srvConfig := server.Config{
		Copilot:        a.copilot,
		Ingester:       a.ingester(nil),
		Tickets:        seed,
		Samples:        seed,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Product:        cfg.Product,
		Logger:         a.logger,
	}

	if !serveNoIntake {
		intake, err := a.openIntake(ctx)
		if err != nil {
			return err
		}
		defer intake.Close()
		srvConfig.Intake = intake
		// classify runs cover both the seed file and everything taken in
		srvConfig.Tickets = tickets.Combined{seed, intake}
	}

	handler, err := server.New(srvConfig)
	if err != nil {
		return goerr.Wrap(err, "failed to create http server")
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", "addr", addr, "product", cfg.Product)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "failed to start server")
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		a.logger.Info("Received shutdown signal", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shutdown server gracefully")
		}
		a.logger.Info("Server shutdown completed")
		return nil
	}
}
