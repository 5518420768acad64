package main

import (
	"context"
	"fmt"

	"github.com/oriys/mqi/internal/session"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var (
		timeoutSeconds float64
		unlimited      bool
	)

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Launch an engine, run one goal synchronously, and shut down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := args[0]

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

			e, err := tc.client.LaunchEngine(ctx, engineOptions(cfg.Engine))
			if err != nil {
				return fmt.Errorf("launch engine: %w", err)
			}
			defer tc.client.ShutdownEngine(ctx, e)

			sess, err := tc.client.OpenSession(ctx, e)
			if err != nil {
				return fmt.Errorf("open session: %w", err)
			}
			defer sess.Close(ctx)

			timeout := session.DefaultTimeout()
			switch {
			case unlimited:
				timeout = session.Unlimited()
			case cmd.Flags().Changed("timeout"):
				timeout = session.Seconds(timeoutSeconds)
			}

			result, err := sess.RunSync(ctx, goal, timeout)
			if err != nil {
				return err
			}
			return printQueryResult(result)
		},
	}

	cmd.Flags().Float64Var(&timeoutSeconds, "timeout", 0, "Query timeout in seconds")
	cmd.Flags().BoolVar(&unlimited, "unlimited", false, "Disable the query timeout")

	return cmd
}
