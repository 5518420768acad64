package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/oriys/mqi/internal/session"
	"github.com/spf13/cobra"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Launch an engine and run an interactive read-goal-print loop",
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

			fmt.Println("mqictl repl - enter a goal, or 'quit' to exit")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("?- ")
				if !scanner.Scan() {
					break
				}
				goal := strings.TrimSpace(scanner.Text())
				if goal == "" {
					continue
				}
				if goal == "quit" || goal == "exit" {
					break
				}

				result, err := sess.RunSync(ctx, goal, session.DefaultTimeout())
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				printQueryResult(result)
			}
			return scanner.Err()
		},
	}
}
