// Package main provides the fitadvice command line client.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jun/fitadvice/internal/config"
	"github.com/jun/fitadvice/internal/logging"
)

const (
	Version = "0.1.0"
	appName = "fitadvice"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliState struct {
	logLevel string
}

func rootCmd() *cobra.Command {
	st := &cliState{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Fitbit health advice client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		loginCmd(),
		analyzeCmd(),
		diagnoseCmd(st),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Print the URL that starts the Fitbit authorization flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in a browser to connect Fitbit:\n%s/login\n", cfg.HostURL)
			return nil
		},
	}
}

func (st *cliState) logger() *slog.Logger {
	return logging.New(os.Stderr, st.logLevel, "text")
}
