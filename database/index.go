package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/graphrag/helper"
)

// Vector index types of the entity embedding index
const (
	IndexTypeHNSW    = "hnsw"
	IndexTypeIVFFlat = "ivfflat"
)

// ChangeIndexType changes the entity embedding index between HNSW and IVFFlat
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (h *EntitiesDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	var createIndexSQL string

	switch indexType {
	case IndexTypeHNSW:
		m := 16
		efConstruction := 64

		if mVal, ok := params["m"].(int); ok {
			m = mVal
		}
		if efVal, ok := params["ef_construction"].(int); ok {
			efConstruction = efVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_entities_embedding ON entities USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case IndexTypeIVFFlat:
		lists := 100
		if listsVal, ok := params["lists"].(int); ok {
			lists = listsVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_entities_embedding ON entities USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	// Swap in one transaction so searches never run without an index
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_entities_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Created %s entity index with params: %v", indexType, params))

	return nil
}
