package main

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/gstoney/mcengine/packet"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			protocols := packet.Default.Protocols()
			slices.Sort(protocols)

			fmt.Printf("mcengine %s (%s)\n", version, commit)
			fmt.Printf("  go:        %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			fmt.Printf("  protocols: %v (canonical %d)\n", protocols, packet.Default.Canonical())
		},
	}
}
