package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/core/provider"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

type fact struct {
	source, sourceType string
	relation           string
	target, targetType string
	sentence, time     string
}

var facts = []fact{
	{"BioNTech", "ORG", "SHIPPED_TO", "Hong Kong", "LOC", "BioNTech shipped 585,000 vaccine doses to Hong Kong.", "2021-03"},
	{"Fosun Pharma", "ORG", "DISTRIBUTES_IN", "Hong Kong", "LOC", "Fosun Pharma distributes the BioNTech vaccine in Hong Kong.", "2021-01"},
	{"Fosun Pharma", "ORG", "PARTNERS_WITH", "BioNTech", "ORG", "Fosun Pharma partnered with BioNTech for Greater China.", "2020-03"},
	{"BioNTech", "ORG", "HEADQUARTERED_IN", "Mainz", "LOC", "BioNTech is headquartered in Mainz, Germany.", ""},
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	config := model.DefaultRetrieverConfig()
	config.GraphDepth = 2
	config.SimilarityThreshold = 0.3

	db, err := helper.NewDatabase("example", dbConfig, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	store, err := database.NewStore(db, config.EmbeddingDim, false)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	// Entity embeddings come from the same shared model the retriever uses
	embedder, err := provider.DefaultRegistry().Embedder(ctx, provider.EmbeddingSpec(&config))
	if err != nil {
		log.Fatalf("Failed to load embedding model: %v", err)
	}

	fmt.Println("Ingesting facts...")
	ids := map[string]string{}
	entity := func(name, entityType string) string {
		if id, ok := ids[name]; ok {
			return id
		}
		embedding, err := embedder.Embed(ctx, name)
		if err != nil {
			log.Fatalf("Failed to embed %s: %v", name, err)
		}
		e := &model.Entity{Name: name, Type: entityType, Embedding: embedding}
		if err := store.Entities.InsertEntity(e); err != nil {
			log.Fatalf("Failed to insert entity %s: %v", name, err)
		}
		ids[name] = e.ID
		return e.ID
	}
	for _, f := range facts {
		properties := model.Properties{model.PropertySentence: f.sentence}
		if f.time != "" {
			properties[model.PropertyTime] = f.time
		}
		relation := &model.Relation{
			SourceID:   entity(f.source, f.sourceType),
			TargetID:   entity(f.target, f.targetType),
			Type:       f.relation,
			Properties: properties,
		}
		if err := store.Relations.InsertRelation(relation); err != nil {
			log.Fatalf("Failed to insert relation: %v", err)
		}
	}
	fmt.Printf("Inserted %d entities and %d relations\n", len(ids), len(facts))

	retriever, err := graphrag.NewRetriever(ctx, config, graphrag.WithStore(store))
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}

	query := "How many BioNTech doses were shipped to Hong Kong?"
	fmt.Printf("\nQuerying: %s\n\n", query)

	result, err := retriever.Retrieve(ctx, query)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	for _, seed := range result.Seeds {
		fmt.Printf("Seed: %s (%.2f, %s)\n", seed.Entity.Label(), seed.Confidence, seed.Source)
	}
	fmt.Printf("\n%s\n", result.Context)
	fmt.Printf("\n%d facts in context, %d dropped, %d nodes visited\n", result.EvidenceCount, result.Dropped, result.NodesVisited)

	fmt.Println("\nBasic example completed successfully!")
}
