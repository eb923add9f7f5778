package graph

import (
	"context"

	"github.com/siherrmann/graphrag/model"
)

// ContainsMatchScore is the name match quality of an entity whose name only
// contains the looked up text. Exact (case-insensitive) matches score 1.
const ContainsMatchScore = 0.8

// Store is the read-only query surface of a property graph.
// Implementations must return results in a deterministic order.
type Store interface {
	// SelectEntitiesBySimilarity returns up to limit entities nearest to the
	// embedding with cosine similarity >= threshold, nearest first.
	// Entity.Similarity carries the similarity.
	SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Entity, error)
	// SelectEntitiesByName returns up to limit entities whose name equals or
	// contains name, case-insensitive. Entity.Similarity carries the match
	// quality (1 or ContainsMatchScore).
	SelectEntitiesByName(ctx context.Context, name string, limit int) ([]*model.Entity, error)
	// SelectRelations returns up to limit relations incident to the entity in
	// either direction, restricted by filter when it is active. Order is weight
	// desc (unweighted counts as 1), degree of the opposite endpoint asc,
	// relation id asc. Each connection carries the number of filter terms the
	// store matched in KeywordHits.
	SelectRelations(ctx context.Context, entityID string, filter *model.KeywordFilter, limit int) ([]*model.RelationConnection, error)
	// SelectDegree returns the number of relations incident to the entity.
	SelectDegree(ctx context.Context, entityID string) (int, error)
}
