package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcengine",
		Short: "Server-side Minecraft 1.15 protocol engine",
		Long: `mcengine serves the Minecraft Java Edition 1.15 wire protocol:
handshake, server list status, offline-mode login with optional
encryption and compression, and the play state packet vocabulary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		statusCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
