package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/secretmask/pkg/api"
	"github.com/codeready-toolchain/secretmask/pkg/cleanup"
	"github.com/codeready-toolchain/secretmask/pkg/database"
	"github.com/codeready-toolchain/secretmask/pkg/version"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the masking engine over HTTP with a gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return failure(a.serve(ctx))
		},
	}
}

// serve runs the HTTP and gRPC servers until ctx is cancelled or the HTTP
// server fails.
func (a *app) serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	cfg := a.cfg.Server

	dispatcher, err := a.newDispatcher(false)
	if err != nil {
		return err
	}

	history, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeHistory(history)

	var opts []api.Option
	if history != nil {
		opts = append(opts, api.WithDatabase(history.DB()))

		retention := cleanup.NewService(a.cfg.History, database.NewRunStore(history.DB()))
		retention.Start(ctx)
		defer retention.Stop()
	}
	httpServer := api.NewServer(cfg, dispatcher, opts...)

	grpcServer := api.NewHealthServer(cfg.ShutdownTimeout)
	if _, err := grpcServer.Listen(fmt.Sprintf(":%d", cfg.GRPCPort)); err != nil {
		return err
	}
	defer grpcServer.Stop()

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("secretmask started", "version", version.Full(), "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-errCh:
		slog.Error("Server error triggered shutdown", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
	return serveErr
}
