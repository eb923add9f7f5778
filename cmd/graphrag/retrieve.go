package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	depth      int
	budget     int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve graph evidence for a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := model.LoadRetrieverConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("depth") {
			config.GraphDepth = depth
		}
		if cmd.Flags().Changed("budget") {
			config.SizeBudget = budget
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		retriever, err := graphrag.NewRetriever(cmd.Context(), config, graphrag.WithLogger(helper.NewLogger(level)))
		if err != nil {
			return err
		}
		defer retriever.Close()

		result, err := retriever.Retrieve(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if jsonOutput {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		}

		fmt.Println(result.Context)
		fmt.Println()
		fmt.Println(color.WhiteString("%d facts, %d dropped, %d nodes visited in %s",
			result.EvidenceCount, result.Dropped, result.NodesVisited, result.Duration))
		if result.TimedOut {
			fmt.Println(color.YellowString("Timed out, evidence is partial"))
		}
		for _, warning := range result.Warnings {
			fmt.Println(color.YellowString("Warning: %s", warning))
		}
		return nil
	},
}

func init() {
	retrieveCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	retrieveCmd.Flags().IntVarP(&depth, "depth", "d", 0, "Override graph_depth")
	retrieveCmd.Flags().IntVarP(&budget, "budget", "b", 0, "Override size_budget")
}
