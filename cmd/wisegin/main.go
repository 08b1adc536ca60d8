package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// release is set through ldflags at build time.
var release = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:     "wisegin",
	Short:   "wisegin: a gin-backed server strategy.",
	Long:    `wisegin: a gin-backed server strategy.`,
	Version: release,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
