// Command chroute is the CLI front-end: preprocess an OSM extract into a
// contracted graph binary, serve it over HTTP, or run a single one-off
// query from the command line. Subcommands share a persistent --graph flag
// through a single cobra root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var graphPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chroute",
		Short: "Contraction Hierarchies route planner",
	}
	rootCmd.PersistentFlags().StringVar(&graphPath, "graph", "graph.bin", "path to the contracted graph binary")

	rootCmd.AddCommand(newPreprocessCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newCompareCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
