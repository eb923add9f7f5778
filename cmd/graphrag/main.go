package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configPath string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "graphrag",
	Short: "Hybrid graph-vector retrieval over a knowledge graph",
	Long:  "Resolve the entities of a question, expand them through the knowledge graph and print ranked evidence as LLM context.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(retrieveCmd, preloadCmd, initIndexCmd)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		stop()
		os.Exit(1)
	}
}
