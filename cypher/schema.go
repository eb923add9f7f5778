package cypher

import (
	"context"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/siherrmann/graphrag/helper"
)

var indexNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CreateVectorIndex creates the cosine vector index on Entity.embedding if it
// does not exist yet. The init-index command and ingestion call it before
// the first query.
func CreateVectorIndex(ctx context.Context, driver neo4j.DriverWithContext, config *helper.Neo4jConfiguration, dim int) error {
	if !indexNamePattern.MatchString(config.VectorIndex) {
		return helper.NewError("index validation", fmt.Errorf("invalid index name %q", config.VectorIndex))
	}
	if dim <= 0 {
		return helper.NewError("index validation", fmt.Errorf("embedding dimension must be positive, got %d", dim))
	}

	_, err := neo4j.ExecuteQuery(ctx, driver, fmt.Sprintf(createVectorIndex, config.VectorIndex, dim), nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(config.Database),
	)
	if err != nil {
		return helper.NewError("create vector index", err)
	}

	_, err = neo4j.ExecuteQuery(ctx, driver, "CALL db.awaitIndexes(60)", nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(config.Database),
	)
	if err != nil {
		return helper.NewError("await vector index", err)
	}
	return nil
}
