package graphrag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/provider"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRegistry embeds texts mentioning BioNTech close to the BioNTech entity
// and counts model loads
func testRegistry(embedLoads, extractLoads *atomic.Int64) *provider.Registry {
	registry := provider.NewRegistry()
	registry.LoadEmbedder = func(spec provider.ModelSpec) (provider.Embedder, error) {
		embedLoads.Add(1)
		return provider.EmbedFunc(func(ctx context.Context, text string) ([]float32, error) {
			if strings.Contains(text, "BioNTech") {
				return []float32{1, 0, 0}, nil
			}
			return []float32{0, 0, 1}, nil
		}), nil
	}
	registry.LoadExtractor = func(spec provider.ModelSpec) (provider.Extractor, error) {
		extractLoads.Add(1)
		return provider.ExtractFunc(func(ctx context.Context, text string) ([]model.Mention, error) {
			if i := strings.Index(text, "Hong Kong"); i >= 0 {
				return []model.Mention{{Text: "Hong Kong", Type: "LOC", Score: 0.99, Start: i, End: i + 9}}, nil
			}
			return nil, nil
		}), nil
	}
	return registry
}

func testConfig() model.RetrieverConfig {
	config := model.DefaultRetrieverConfig()
	config.Backend = model.BackendMemory
	config.UseNER = false
	config.SimilarityThreshold = 0.5
	config.KeywordFilter = false
	config.RetryBackoff = 0
	config.EmbeddingDim = 3
	return config
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vaccineStore(t *testing.T) *graph.MemoryStore {
	store := graph.NewMemoryStore()
	store.AddEntity(&model.Entity{ID: "e1", Name: "BioNTech", Type: "ORG", Embedding: []float32{1, 0, 0}})
	store.AddEntity(&model.Entity{ID: "e2", Name: "Hong Kong", Type: "LOC", Embedding: []float32{0, 1, 0}})
	store.AddEntity(&model.Entity{ID: "e3", Name: "Fosun Pharma", Type: "ORG", Embedding: []float32{0, 0.2, 1}})

	_, err := store.AddRelation(&model.Relation{
		ID: "r1", SourceID: "e1", TargetID: "e2", Type: "SHIPPED_TO",
		Properties: model.Properties{
			model.PropertySentence: "BioNTech shipped 585,000 doses to Hong Kong",
			model.PropertyTime:     "2021-03",
		},
	})
	require.NoError(t, err)
	_, err = store.AddRelation(&model.Relation{
		ID: "r2", SourceID: "e3", TargetID: "e2", Type: "DISTRIBUTES_IN",
		Properties: model.Properties{model.PropertySentence: "Fosun Pharma distributes the vaccine in Hong Kong"},
	})
	require.NoError(t, err)
	return store
}

func TestNewRetriever(t *testing.T) {
	t.Run("Invalid configuration", func(t *testing.T) {
		config := testConfig()
		config.GraphDepth = -1

		r, err := NewRetriever(context.Background(), config, WithLogger(testLogger()))

		assert.Nil(t, r)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("Models load lazily", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		registry := testRegistry(&embedLoads, &extractLoads)

		r, err := NewRetriever(context.Background(), testConfig(),
			WithStore(vaccineStore(t)), WithRegistry(registry), WithLogger(testLogger()))
		require.NoError(t, err)
		assert.Equal(t, int64(0), embedLoads.Load(), "Expected no model load before the first query")

		_, err = r.Retrieve(context.Background(), "Where did BioNTech ship doses?")
		require.NoError(t, err)
		assert.Equal(t, int64(1), embedLoads.Load())
	})

	t.Run("Models load eagerly", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		config := testConfig()
		config.LazyLoadModel = false
		config.UseNER = true

		_, err := NewRetriever(context.Background(), config,
			WithStore(vaccineStore(t)), WithRegistry(testRegistry(&embedLoads, &extractLoads)), WithLogger(testLogger()))

		require.NoError(t, err)
		assert.Equal(t, int64(1), embedLoads.Load())
		assert.Equal(t, int64(1), extractLoads.Load())
	})

	t.Run("Eager load failure", func(t *testing.T) {
		registry := provider.NewRegistry()
		registry.LoadEmbedder = func(spec provider.ModelSpec) (provider.Embedder, error) {
			return nil, errors.New("model not found")
		}
		config := testConfig()
		config.LazyLoadModel = false

		_, err := NewRetriever(context.Background(), config,
			WithStore(vaccineStore(t)), WithRegistry(registry), WithLogger(testLogger()))

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrModelLoadFailure)
		assert.Contains(t, err.Error(), config.EmbeddingModelName)
	})

	t.Run("Retrievers share one model", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		registry := testRegistry(&embedLoads, &extractLoads)
		store := vaccineStore(t)

		first, err := NewRetriever(context.Background(), testConfig(), WithStore(store), WithRegistry(registry), WithLogger(testLogger()))
		require.NoError(t, err)
		second, err := NewRetriever(context.Background(), testConfig(), WithStore(store), WithRegistry(registry), WithLogger(testLogger()))
		require.NoError(t, err)

		_, err = first.Retrieve(context.Background(), "BioNTech")
		require.NoError(t, err)
		_, err = second.Retrieve(context.Background(), "BioNTech")
		require.NoError(t, err)

		assert.Equal(t, int64(1), embedLoads.Load())
		assert.Equal(t, 1, registry.Embedders.Len())
	})
}

func TestRetrieve(t *testing.T) {
	t.Run("Two hop evidence from the memory store", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		r, err := NewRetriever(context.Background(), testConfig(),
			WithStore(vaccineStore(t)), WithRegistry(testRegistry(&embedLoads, &extractLoads)), WithLogger(testLogger()))
		require.NoError(t, err)

		result, err := r.Retrieve(context.Background(), "Where did BioNTech ship doses?")

		require.NoError(t, err)
		require.Len(t, result.Seeds, 1)
		assert.Equal(t, "e1", result.Seeds[0].Entity.ID)
		require.Equal(t, 2, result.EvidenceCount)
		assert.Equal(t, "r1", result.Evidence[0].Relation.ID)
		assert.Equal(t, "r2", result.Evidence[1].Relation.ID)
		assert.True(t, strings.HasPrefix(result.Context, r.Config.ContextHeader))
		assert.Contains(t, result.Context, "[1] BioNTech (ORG) --[SHIPPED_TO]--> Hong Kong (LOC)")
		assert.Contains(t, result.Context, "time: 2021-03")
		assert.NotEmpty(t, result.QueryID)
	})

	t.Run("NER seeds the mentioned entity", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		config := testConfig()
		config.UseNER = true
		config.GraphDepth = 1
		r, err := NewRetriever(context.Background(), config,
			WithStore(vaccineStore(t)), WithRegistry(testRegistry(&embedLoads, &extractLoads)), WithLogger(testLogger()))
		require.NoError(t, err)

		result, err := r.Retrieve(context.Background(), "Who distributes vaccines in Hong Kong?")

		require.NoError(t, err)
		assert.Equal(t, int64(1), extractLoads.Load())
		seeds := map[string]model.ResolutionSource{}
		for _, seed := range result.Seeds {
			seeds[seed.Entity.ID] = seed.Source
		}
		assert.Contains(t, seeds, "e2")
		assert.Contains(t, seeds, "e3")
		assert.Equal(t, 2, result.EvidenceCount)
	})

	t.Run("Empty memory backend has nothing to resolve", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		r, err := NewRetriever(context.Background(), testConfig(),
			WithRegistry(testRegistry(&embedLoads, &extractLoads)), WithLogger(testLogger()))
		require.NoError(t, err)
		defer r.Close()

		_, err = r.Retrieve(context.Background(), "BioNTech")

		assert.ErrorIs(t, err, model.ErrResolutionUnavailable)
	})

	t.Run("Uninitialized retriever", func(t *testing.T) {
		_, err := (&Retriever{}).Retrieve(context.Background(), "BioNTech")

		assert.Error(t, err)
	})
}

// closingStore records whether Close was called
type closingStore struct {
	graph.Store
	closed bool
}

func (s *closingStore) Close() error {
	s.closed = true
	return nil
}

func TestClose(t *testing.T) {
	t.Run("Caller owned store stays open", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		store := &closingStore{Store: vaccineStore(t)}
		r, err := NewRetriever(context.Background(), testConfig(),
			WithStore(store), WithRegistry(testRegistry(&embedLoads, &extractLoads)), WithLogger(testLogger()))
		require.NoError(t, err)

		assert.NoError(t, r.Close())
		assert.False(t, store.closed)
	})
}

func TestPostgresBackend(t *testing.T) {
	if dbPort == "" {
		t.Skip("postgres container not running")
	}
	helper.SetTestDatabaseConfigEnvs(t, dbPort)

	var embedLoads, extractLoads atomic.Int64
	config := testConfig()
	config.Backend = model.BackendPostgres
	r, err := NewRetriever(context.Background(), config,
		WithRegistry(testRegistry(&embedLoads, &extractLoads)), WithLogger(testLogger()))
	require.NoError(t, err)
	defer r.Close()

	t.Run("Opens the configured store", func(t *testing.T) {
		assert.True(t, r.ownsStore)
		assert.NotNil(t, r.Store)
	})

	t.Run("Empty graph has nothing to resolve", func(t *testing.T) {
		_, err := r.Retrieve(context.Background(), "BioNTech")

		assert.ErrorIs(t, err, model.ErrResolutionUnavailable)
	})
}
