package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oriys/mqi/internal/logging"
	"github.com/spf13/cobra"
)

func launchCmd() *cobra.Command {
	var (
		execPath string
		port     int
		unixSock bool
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch an engine subprocess and keep it running until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("executable") {
				cfg.Engine.ExecutablePath = execPath
			}
			if cmd.Flags().Changed("port") {
				cfg.Engine.Port = port
			}
			if cmd.Flags().Changed("unix-socket") {
				cfg.Engine.UseUnixSocket = unixSock
			}

			ctx := context.Background()
			tc, err := buildToolchain(ctx, cfg)
			if err != nil {
				return err
			}
			defer tc.Close(ctx)

			e, err := tc.client.LaunchEngine(ctx, engineOptions(cfg.Engine))
			if err != nil {
				return fmt.Errorf("launch engine: %w", err)
			}

			endpoint := e.Endpoint()
			fmt.Printf("engine %s launched (%s", e.ID(), endpoint.Kind)
			if endpoint.Port != 0 {
				fmt.Printf(" port=%d", endpoint.Port)
			}
			if endpoint.Path != "" {
				fmt.Printf(" path=%s", endpoint.Path)
			}
			fmt.Println(")")
			fmt.Println("press Ctrl+C to shut it down")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logging.Op().Info("shutdown signal received", "engine_id", e.ID())
			return tc.client.ShutdownEngine(ctx, e)
		},
	}

	cmd.Flags().StringVar(&execPath, "executable", "", "Engine executable path override")
	cmd.Flags().IntVar(&port, "port", 0, "TCP loopback port (0 = engine picks one)")
	cmd.Flags().BoolVar(&unixSock, "unix-socket", false, "Use a Unix domain socket instead of TCP loopback")

	return cmd
}
