package retrieval

import (
	"context"

	"github.com/siherrmann/graphrag/model"
)

// Resolver turns a query into seed entities
type Resolver interface {
	Resolve(ctx context.Context, query string, topK int, useNER bool) ([]*model.SeedEntity, error)
}

// Expander traverses the graph from seed entities and collects evidence
type Expander interface {
	Expand(ctx context.Context, seeds []*model.SeedEntity, depth int, filter *model.KeywordFilter) (*model.Expansion, error)
}

// Ranker deduplicates evidence and orders it
type Ranker interface {
	Rank(evidence []*model.Evidence) []*model.Evidence
}

// Formatter serializes ranked evidence into a size bounded context
type Formatter interface {
	Format(ranked []*model.Evidence, budget int) *model.ContextBundle
}

// Stages holds one implementation per retrieval stage.
// Any stage can be replaced independently.
type Stages struct {
	Resolver  Resolver
	Expander  Expander
	Ranker    Ranker
	Formatter Formatter
}
