package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/rpc"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

// #region serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the model over gRPC and expose /metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()

		m, versionID, err := loadModel(s)
		if err != nil {
			return err
		}

		opts := []rpc.ServerOption{rpc.WithServerLogger(logger)}
		if versionID != "" {
			opts = append(opts, rpc.WithAudit(s.DB()))
		}
		srv := rpc.NewServer(m, versionID, gate.NewGate(cfg.Gate), opts...)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, srv)
	},
}

// serve runs the gRPC server and, when configured, the metrics endpoint until
// ctx is cancelled or either listener fails.
func serve(ctx context.Context, srv *rpc.Server) error {
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	gs := grpc.NewServer()
	srv.Register(gs)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		return gs.Serve(lis)
	})

	var hs *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		hs = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down")
		gs.GracefulStop()
		if hs != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		}
		return nil
	})

	return eg.Wait()
}

// #endregion serve
