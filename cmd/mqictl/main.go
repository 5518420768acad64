// Command mqictl is the operator-facing CLI over the mqi facade, grounded
// on the teacher's cmd/nova: a cobra root with persistent connection flags,
// one subcommand per lifecycle verb, and a "serve" daemon mode exposing a
// metrics/health HTTP surface for hosts that run mqictl as a sidecar rather
// than embedding the library.
package main

import (
	"fmt"
	"os"

	"github.com/oriys/mqi/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	profileName string
	jsonOutput  bool
	logLevel    string
	logFormat   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mqictl",
		Short: "mqictl - launch and query an MQI-speaking logic engine",
		Long:  "A CLI around the MQI client library: launch an engine subprocess, open a session, run goals, and tear it down.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitStructured(logFormat, logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a JSON config file (optional, flags override)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Named connection profile from ~/.mqictl/profiles.yaml")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Operational log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Operational log format (text, json)")

	rootCmd.AddCommand(
		launchCmd(),
		runCmd(),
		replCmd(),
		serveCmd(),
		profileCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print mqictl's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("mqictl (mqi client)")
			return nil
		},
	}
}
