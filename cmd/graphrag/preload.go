package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/siherrmann/graphrag/core/provider"
	"github.com/siherrmann/graphrag/model"
	"github.com/spf13/cobra"
)

var preloadCmd = &cobra.Command{
	Use:   "preload",
	Short: "Download and load the configured models",
	Long:  "Download the embedding and NER models into model_dir and check that they load, so the first query does not pay for it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := model.LoadRetrieverConfig(configPath)
		if err != nil {
			return err
		}

		registry := provider.DefaultRegistry()
		defer registry.Clear()

		spec := provider.EmbeddingSpec(&config)
		fmt.Println(color.WhiteString("Loading embedding model %s", spec.Name))
		if _, err := registry.Embedder(cmd.Context(), spec); err != nil {
			return err
		}

		if config.UseNER {
			spec := provider.NERSpec(&config)
			fmt.Println(color.WhiteString("Loading NER model %s", spec.Name))
			if _, err := registry.Extractor(cmd.Context(), spec); err != nil {
				return err
			}
		}

		fmt.Println(color.GreenString("Models ready in %s", config.ModelDir))
		return nil
	},
}
