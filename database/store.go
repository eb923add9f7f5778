package database

import (
	"context"
	"fmt"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

var _ graph.Store = (*Store)(nil)

// Store is the Postgres backed graph store. It combines the entities and
// relations handlers behind the read-only graph.Store surface.
type Store struct {
	DB        *helper.Database
	Entities  *EntitiesDBHandler
	Relations *RelationsDBHandler
}

// NewStore initializes extensions, SQL functions and tables and returns the store
func NewStore(db *helper.Database, embeddingDim int, force bool) (*Store, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Entities first, relations reference them
	entities, err := NewEntitiesDBHandler(db, embeddingDim, force)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relations, err := NewRelationsDBHandler(db, force)
	if err != nil {
		return nil, helper.NewError("create relations handler", err)
	}

	return &Store{
		DB:        db,
		Entities:  entities,
		Relations: relations,
	}, nil
}

// SelectEntitiesBySimilarity implements graph.Store
func (s *Store) SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Entity, error) {
	return s.Entities.SelectEntitiesBySimilarity(ctx, embedding, limit, threshold)
}

// SelectEntitiesByName implements graph.Store
func (s *Store) SelectEntitiesByName(ctx context.Context, name string, limit int) ([]*model.Entity, error) {
	return s.Entities.SelectEntitiesByName(ctx, name, limit, graph.ContainsMatchScore)
}

// SelectRelations implements graph.Store
func (s *Store) SelectRelations(ctx context.Context, entityID string, filter *model.KeywordFilter, limit int) ([]*model.RelationConnection, error) {
	return s.Relations.SelectRelationsByEntity(ctx, entityID, filter, limit)
}

// SelectDegree implements graph.Store
func (s *Store) SelectDegree(ctx context.Context, entityID string) (int, error) {
	return s.Entities.SelectEntityDegree(ctx, entityID)
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	return s.DB.Close()
}
