package database

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeIndexType(t *testing.T) {
	store := initStore(t)
	ctx := context.Background()

	entity := &model.Entity{Name: "BioNTech", Type: "ORG", Embedding: []float32{1, 0, 0}}
	require.NoError(t, store.Entities.InsertEntity(entity))
	searchable := func(t *testing.T) {
		entities, err := store.SelectEntitiesBySimilarity(ctx, []float32{1, 0, 0}, 5, 0.5)
		require.NoError(t, err)
		require.Len(t, entities, 1, "Expected similarity search to work on the new index")
		assert.Equal(t, entity.ID, entities[0].ID)
	}

	t.Run("Change index to HNSW with default params", func(t *testing.T) {
		err := store.Entities.ChangeIndexType(ctx, IndexTypeHNSW, map[string]interface{}{})
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw to not return an error")
		searchable(t)
	})

	t.Run("Change index to HNSW with custom params", func(t *testing.T) {
		params := map[string]interface{}{
			"m":               32,
			"ef_construction": 128,
		}
		err := store.Entities.ChangeIndexType(ctx, IndexTypeHNSW, params)
		assert.NoError(t, err, "Expected ChangeIndexType to hnsw with custom params to not return an error")
	})

	t.Run("Change index to IVFFlat with custom params", func(t *testing.T) {
		err := store.Entities.ChangeIndexType(ctx, IndexTypeIVFFlat, map[string]interface{}{"lists": 1})
		assert.NoError(t, err, "Expected ChangeIndexType to ivfflat to not return an error")
		searchable(t)
	})

	t.Run("Change index with unsupported index type", func(t *testing.T) {
		err := store.Entities.ChangeIndexType(ctx, "invalid", nil)
		assert.Error(t, err, "Expected error when using unsupported index type")
		assert.Contains(t, err.Error(), "unsupported index type")
		searchable(t)
	})

	t.Run("Change index with expired context", func(t *testing.T) {
		expired, cancel := context.WithTimeout(ctx, time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		err := store.Entities.ChangeIndexType(expired, IndexTypeHNSW, nil)
		assert.Error(t, err, "Expected error with expired context")
	})
}
