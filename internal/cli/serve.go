package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/heysubinoy/localstore/internal/api"
	"github.com/heysubinoy/localstore/internal/engine"
	"github.com/heysubinoy/localstore/internal/store"
	"github.com/heysubinoy/localstore/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storage server",
		Long: `Run the storage server.

The server loads the storage file (unless init_on_start is false, in which
case a client must call initialize), then serves HTTP and gRPC until
interrupted. The final flush is written before the process exits.

Example:
  localstore serve --config ./localstore.yaml
  LOCALSTORE_DATA_DIR=/tmp/app localstore serve -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel, rootOpts.Verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	policy, err := engine.ParseQueryPolicy(cfg.QueryPolicy)
	if err != nil {
		return err
	}

	instrumented := store.NewInstrumentedStore(store.NewMemStore())
	eng := engine.New(cfg.StoragePath(),
		engine.WithLogger(logger),
		engine.WithStore(instrumented),
		engine.WithQueryPolicy(policy),
		engine.WithReadyHook(func(keys int) {
			logger.Info("localStorage.loaded", zap.Int("keys", keys))
		}),
	)

	engineErr := make(chan error, 1)
	go func() { engineErr <- eng.Run(context.Background()) }()
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error("closing engine", zap.Error(err))
		}
		if err := <-engineErr; err != nil {
			logger.Error("engine stopped", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterLocalStorageServer(grpcServer, api.NewGRPCServer(eng, logger))

	mux := http.NewServeMux()
	api.NewServer(eng, logger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", api.MetricsHandler(instrumented, eng))
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	if cfg.ShouldInitOnStart() {
		if err := eng.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize storage: %w", err)
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		logger.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	return runErr
}
