package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/siherrmann/graphrag/cypher"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"github.com/spf13/cobra"
)

var indexType string

var initIndexCmd = &cobra.Command{
	Use:   "init-index",
	Short: "Create the entity vector index of the configured backend",
	Long:  "Create the cosine vector index on entity embeddings with embedding_dim dimensions. On postgres --type switches between hnsw and ivfflat.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := model.LoadRetrieverConfig(configPath)
		if err != nil {
			return err
		}
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := helper.NewLogger(level)

		switch config.Backend {
		case model.BackendNeo4j:
			neo4jConfig, err := helper.NewNeo4jConfiguration()
			if err != nil {
				return err
			}
			driver, err := helper.NewNeo4jDriver(cmd.Context(), neo4jConfig)
			if err != nil {
				return err
			}
			defer driver.Close(cmd.Context())

			if err := cypher.CreateVectorIndex(cmd.Context(), driver, neo4jConfig, config.EmbeddingDim); err != nil {
				return err
			}
			fmt.Println(color.GreenString("Vector index %s ready with %d dimensions", neo4jConfig.VectorIndex, config.EmbeddingDim))
		case model.BackendPostgres:
			dbConfig, err := helper.NewDatabaseConfiguration()
			if err != nil {
				return err
			}
			db, err := helper.NewDatabase("graphrag", dbConfig, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			store, err := database.NewStore(db, config.EmbeddingDim, false)
			if err != nil {
				return err
			}
			if err := store.Entities.ChangeIndexType(cmd.Context(), indexType, nil); err != nil {
				return err
			}
			fmt.Println(color.GreenString("Entity index switched to %s with %d dimensions", indexType, config.EmbeddingDim))
		default:
			return fmt.Errorf("backend %q has no vector index", config.Backend)
		}
		return nil
	},
}

func init() {
	initIndexCmd.Flags().StringVarP(&indexType, "type", "t", database.IndexTypeHNSW, "Postgres index type (hnsw or ivfflat)")
}
