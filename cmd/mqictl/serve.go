package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oriys/mqi/internal/grpcapi"
	"github.com/oriys/mqi/internal/logging"
	"github.com/spf13/cobra"
)

// serveCmd runs mqictl as a long-lived sidecar: a metrics/health HTTP
// surface and, when configured, the gRPC control plane, mirroring the
// teacher's daemonCmd wait-for-signals loop.
func serveCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run mqictl as a daemon exposing /metrics and /healthz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			tc, err := buildToolchain(ctx, cfg)
			if err != nil {
				return err
			}
			defer tc.Close(ctx)

			mux := http.NewServeMux()
			mux.Handle("/metrics", tc.metrics.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"status":"ok"}`)
			})

			httpServer := &http.Server{Addr: httpAddr, Handler: mux}
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					tc.logger.Log(logging.Event{Kind: "mqictl", Name: "http_serve_exited", Error: err.Error()})
				}
			}()
			logging.Op().Info("http API started", "addr", httpAddr)

			var grpcServer *grpcapi.Server
			if cfg.GRPC.Enabled {
				grpcServer = grpcapi.NewServer(tc.client, tc.logger)
				if err := grpcServer.Start(cfg.GRPC.Addr); err != nil {
					return fmt.Errorf("start gRPC server: %w", err)
				}
				logging.Op().Info("grpc control plane started", "addr", cfg.GRPC.Addr)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logging.Op().Info("shutdown signal received")
			if grpcServer != nil {
				grpcServer.Stop()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", ":9090", "HTTP address for /metrics and /healthz")
	return cmd
}
