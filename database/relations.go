package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// RelationsDBHandlerFunctions defines the interface for Relations database operations.
type RelationsDBHandlerFunctions interface {
	InsertRelation(relation *model.Relation) error
	SelectRelation(ctx context.Context, id string) (*model.Relation, error)
	SelectRelationsByEntity(ctx context.Context, entityID string, filter *model.KeywordFilter, limit int) ([]*model.RelationConnection, error)
	DeleteRelation(id string) error
}

// RelationsDBHandler handles relation-related database operations
type RelationsDBHandler struct {
	db *helper.Database
}

// NewRelationsDBHandler creates a new relations database handler.
// The entities table must exist, relations reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationsDBHandler(db *helper.Database, force bool) (*RelationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationsDbHandler := &RelationsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationsSql(relationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relations sql", err)
	}

	err = relationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationsDBHandler")

	return relationsDbHandler, nil
}

// CreateTable creates the 'relations' table and its indexes if they do not exist.
func (h *RelationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relations();`)
	if err != nil {
		log.Panicf("error initializing relations table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relations")

	return nil
}

// InsertRelation inserts a new relation
func (h *RelationsDBHandler) InsertRelation(relation *model.Relation) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relation($1, $2, $3, $4, $5)`,
		relation.SourceID,
		relation.TargetID,
		relation.Type,
		relation.Properties,
		relation.Weight,
	)

	err := row.Scan(
		&relation.ID,
		&relation.SourceID,
		&relation.TargetID,
		&relation.Type,
		&relation.Properties,
		&relation.Weight,
		&relation.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRelation retrieves a relation by ID
func (h *RelationsDBHandler) SelectRelation(ctx context.Context, id string) (*model.Relation, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_relation($1)`,
		id,
	)

	relation := &model.Relation{}
	err := row.Scan(
		&relation.ID,
		&relation.SourceID,
		&relation.TargetID,
		&relation.Type,
		&relation.Properties,
		&relation.Weight,
		&relation.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return relation, nil
}

// SelectRelationsByEntity retrieves relations incident to an entity in both
// directions together with their endpoints. The keyword filter is evaluated
// by the database, which also counts the matching terms per relation.
func (h *RelationsDBHandler) SelectRelationsByEntity(ctx context.Context, entityID string, filter *model.KeywordFilter, limit int) ([]*model.RelationConnection, error) {
	terms := []string{}
	mode := model.MatchSubstring
	if filter.Active() {
		terms = filter.Terms
		mode = filter.Mode
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_relations_by_entity($1, $2, $3, $4, $5)`,
		entityID,
		pq.Array(terms),
		string(mode),
		model.FuzzyThreshold,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var connections []*model.RelationConnection
	for rows.Next() {
		relation := &model.Relation{}
		source := &model.Entity{}
		target := &model.Entity{}
		var weight sql.NullFloat64
		var hits int
		err := rows.Scan(
			&relation.ID,
			&relation.SourceID,
			&relation.TargetID,
			&relation.Type,
			&relation.Properties,
			&weight,
			&relation.CreatedAt,
			&source.Name,
			&source.Type,
			&source.Degree,
			&target.Name,
			&target.Type,
			&target.Degree,
			&hits,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		if weight.Valid {
			w := weight.Float64
			relation.Weight = &w
		}
		source.ID = relation.SourceID
		target.ID = relation.TargetID

		connections = append(connections, &model.RelationConnection{
			Relation:    relation,
			Source:      source,
			Target:      target,
			KeywordHits: hits,
		})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return connections, nil
}

// DeleteRelation deletes a relation by ID
func (h *RelationsDBHandler) DeleteRelation(id string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_relation($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
