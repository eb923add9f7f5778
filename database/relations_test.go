package database

import (
	"context"
	"testing"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 {
	return &f
}

func TestRelationsNewRelationsDBHandler(t *testing.T) {
	t.Run("Invalid call NewRelationsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRelationsDBHandler(nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestRelationsInsertAndSelect(t *testing.T) {
	store := initStore(t)
	ctx := context.Background()

	center := &model.Entity{Name: "BioNTech", Type: "ORG"}
	hk := &model.Entity{Name: "Hong Kong", Type: "LOC"}
	de := &model.Entity{Name: "Germany", Type: "LOC"}
	other := &model.Entity{Name: "Fosun", Type: "ORG"}
	for _, e := range []*model.Entity{center, hk, de, other} {
		require.NoError(t, store.Entities.InsertEntity(e))
	}

	shipped := &model.Relation{
		SourceID:   center.ID,
		TargetID:   hk.ID,
		Type:       "SHIPPED_TO",
		Weight:     ptr(0.5),
		Properties: model.Properties{model.PropertySentence: "BioNTech shipped 585,000 doses to Hong Kong", model.PropertyTime: "2021"},
	}
	located := &model.Relation{SourceID: de.ID, TargetID: center.ID, Type: "HEADQUARTERS_OF"}
	partner := &model.Relation{SourceID: center.ID, TargetID: other.ID, Type: "PARTNERS_WITH"}
	second := &model.Relation{SourceID: other.ID, TargetID: hk.ID, Type: "DISTRIBUTES_IN"}
	for _, r := range []*model.Relation{shipped, located, partner, second} {
		require.NoError(t, store.Relations.InsertRelation(r))
		assert.NotEmpty(t, r.ID, "Expected inserted relation to have an ID")
	}

	t.Run("Select relation", func(t *testing.T) {
		relation, err := store.Relations.SelectRelation(ctx, shipped.ID)

		require.NoError(t, err)
		assert.Equal(t, "SHIPPED_TO", relation.Type)
		require.NotNil(t, relation.Weight)
		assert.Equal(t, 0.5, *relation.Weight)
		assert.Equal(t, "2021", relation.Properties.String(model.PropertyTime))
	})

	t.Run("Select relations by entity in deterministic order", func(t *testing.T) {
		connections, err := store.Relations.SelectRelationsByEntity(ctx, center.ID, nil, 10)

		require.NoError(t, err)
		require.Len(t, connections, 3)
		// Unweighted first: Germany (degree 1) before Fosun (degree 2), then the weighted one
		assert.Equal(t, located.ID, connections[0].Relation.ID)
		assert.Equal(t, partner.ID, connections[1].Relation.ID)
		assert.Equal(t, shipped.ID, connections[2].Relation.ID)
		assert.Nil(t, connections[0].Relation.Weight)
		assert.Equal(t, "Germany", connections[0].Source.Name)
		assert.Equal(t, 3, connections[0].Target.Degree)
	})

	t.Run("Select relations by entity with limit", func(t *testing.T) {
		connections, err := store.Relations.SelectRelationsByEntity(ctx, center.ID, nil, 1)

		require.NoError(t, err)
		require.Len(t, connections, 1)
		assert.Equal(t, located.ID, connections[0].Relation.ID)
	})

	t.Run("Keyword filter is pushed down", func(t *testing.T) {
		filter := &model.KeywordFilter{Terms: []string{"585,000"}, Mode: model.MatchToken}
		connections, err := store.Relations.SelectRelationsByEntity(ctx, center.ID, filter, 10)

		require.NoError(t, err)
		require.Len(t, connections, 1)
		assert.Equal(t, shipped.ID, connections[0].Relation.ID)
	})

	t.Run("Keyword filter matches relation type", func(t *testing.T) {
		filter := &model.KeywordFilter{Terms: []string{"partners"}, Mode: model.MatchSubstring}
		connections, err := store.Relations.SelectRelationsByEntity(ctx, center.ID, filter, 10)

		require.NoError(t, err)
		require.Len(t, connections, 1)
		assert.Equal(t, partner.ID, connections[0].Relation.ID)
	})

	t.Run("Keyword hits are counted by the database", func(t *testing.T) {
		filter := &model.KeywordFilter{Terms: []string{"shiped", "dozes", "quantum"}, Mode: model.MatchFuzzy}
		connections, err := store.Relations.SelectRelationsByEntity(ctx, center.ID, filter, 10)

		require.NoError(t, err)
		require.Len(t, connections, 1)
		assert.Equal(t, shipped.ID, connections[0].Relation.ID)
		assert.Equal(t, 2, connections[0].KeywordHits)

		connections, err = store.Relations.SelectRelationsByEntity(ctx, center.ID, nil, 10)
		require.NoError(t, err)
		assert.Zero(t, connections[0].KeywordHits, "Expected no hits without a filter")
	})

	t.Run("Store surface returns the same relations", func(t *testing.T) {
		connections, err := store.SelectRelations(ctx, hk.ID, nil, 10)
		require.NoError(t, err)
		assert.Len(t, connections, 2)

		degree, err := store.SelectDegree(ctx, hk.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, degree)
	})

	t.Run("Delete relation", func(t *testing.T) {
		require.NoError(t, store.Relations.DeleteRelation(second.ID))

		_, err := store.Relations.SelectRelation(ctx, second.ID)
		assert.Error(t, err)
	})
}
