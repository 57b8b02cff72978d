package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "punguzo-cli",
		Short:   "Operator tasks for the Punguzo MLM backend",
		Version: Version,
	}

	rootCmd.AddCommand(syncProductsCmd)
	rootCmd.AddCommand(recomputeMetricsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
