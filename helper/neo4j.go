package helper

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jConfiguration holds the Neo4j connection settings
type Neo4jConfiguration struct {
	URI      string `env:"URI" envDefault:"neo4j://localhost:7687"`
	Username string `env:"USERNAME" envDefault:"neo4j"`
	Password string `env:"PASSWORD"`
	Database string `env:"DATABASE" envDefault:"neo4j"`
	// VectorIndex is the name of the entity embedding vector index
	VectorIndex string `env:"VECTOR_INDEX" envDefault:"entity_embeddings"`
}

// Neo4jEnvPrefix prefixes all Neo4j environment variables
const Neo4jEnvPrefix = "GRAPHRAG_NEO4J_"

// NewNeo4jConfiguration reads the Neo4j configuration from GRAPHRAG_NEO4J_* variables
func NewNeo4jConfiguration() (*Neo4jConfiguration, error) {
	config := &Neo4jConfiguration{}
	if err := env.Parse(config, env.Options{Prefix: Neo4jEnvPrefix}); err != nil {
		return nil, NewError("parse neo4j environment", err)
	}
	return config, nil
}

// NewNeo4jDriver creates a driver and verifies that the server is reachable
func NewNeo4jDriver(ctx context.Context, config *Neo4jConfiguration) (neo4j.DriverWithContext, error) {
	if config == nil {
		return nil, NewError("neo4j configuration validation", fmt.Errorf("neo4j configuration is nil"))
	}

	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, NewError("create neo4j driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, NewError("verify neo4j connectivity", err)
	}
	return driver, nil
}
