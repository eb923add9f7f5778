package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	DeleteEntity(id string) error
	SelectEntity(ctx context.Context, id string) (*model.Entity, error)
	SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Entity, error)
	SelectEntitiesByName(ctx context.Context, name string, limit int, containsScore float64) ([]*model.Entity, error)
	SelectEntityDegree(ctx context.Context, id string) (int, error)
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, embeddingDim int, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities($1);`, h.embeddingDim)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a new entity (or updates if exists)
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	var embedding interface{}
	if len(entity.Embedding) > 0 {
		if len(entity.Embedding) != h.embeddingDim {
			return helper.NewError("embedding validation", fmt.Errorf("expected %d dimensions, got %d", h.embeddingDim, len(entity.Embedding)))
		}
		embedding = pgvector.NewVector(entity.Embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4)`,
		entity.Name,
		entity.Type,
		embedding,
		entity.Metadata,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteEntity deletes an entity by ID, cascading to its relations
func (h *EntitiesDBHandler) DeleteEntity(id string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(ctx context.Context, id string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_entity($1)`,
		id,
	)

	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		&entity.Metadata,
		&entity.CreatedAt,
		&entity.Degree,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesBySimilarity performs a cosine similarity search over entity embeddings
func (h *EntitiesDBHandler) SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Entity, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_entities_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRankedEntities(rows)
}

// SelectEntitiesByName finds entities whose name equals or contains name.
// Similarity is 1 for exact matches and containsScore otherwise.
func (h *EntitiesDBHandler) SelectEntitiesByName(ctx context.Context, name string, limit int, containsScore float64) ([]*model.Entity, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_entities_by_name($1, $2, $3)`,
		name,
		limit,
		containsScore,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRankedEntities(rows)
}

// SelectEntityDegree counts the relations incident to an entity
func (h *EntitiesDBHandler) SelectEntityDegree(ctx context.Context, id string) (int, error) {
	var degree sql.NullInt64
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT select_entity_degree($1)`,
		id,
	).Scan(&degree)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return int(degree.Int64), nil
}

func scanRankedEntities(rows *sql.Rows) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.Name,
			&entity.Type,
			&entity.Metadata,
			&entity.CreatedAt,
			&entity.Degree,
			&entity.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}
