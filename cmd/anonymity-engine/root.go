// Package main provides the entry point for the anonymity-engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for anonymity-engine.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anonymity-engine",
		Short: "Periodic exit IP rotation for a local Tor daemon",
		Long: `anonymity-engine rotates the exit IP of a local Tor daemon on a timer.

Each cycle reloads the daemon so it builds fresh circuits, waits for the
replacement circuit to settle, then verifies the public exit address
through the SOCKS5 proxy against public IP-echo services.

The system Tor service is used by default. Use --embedded-tor to launch
a private daemon instead of touching the system service.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Emit logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewRotateCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getJSONLogFlag retrieves the json-log flag from the command or its parent.
func getJSONLogFlag(cmd *cobra.Command) bool {
	jsonLog, err := cmd.Flags().GetBool("json-log")
	if err != nil {
		jsonLog, err = cmd.Root().PersistentFlags().GetBool("json-log")
		if err != nil {
			return false
		}
	}
	return jsonLog
}
