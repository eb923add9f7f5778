package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRegistry(embedLoads, extractLoads *atomic.Int64) *Registry {
	registry := NewRegistry()
	registry.LoadEmbedder = func(spec ModelSpec) (Embedder, error) {
		embedLoads.Add(1)
		return EmbedFunc(func(ctx context.Context, text string) ([]float32, error) {
			return []float32{float32(len(text)), 1, 0}, nil
		}), nil
	}
	registry.LoadExtractor = func(spec ModelSpec) (Extractor, error) {
		extractLoads.Add(1)
		return ExtractFunc(func(ctx context.Context, text string) ([]model.Mention, error) {
			return []model.Mention{{Text: text, Type: "MISC", Score: 1}}, nil
		}), nil
	}
	return registry
}

func TestRegistry(t *testing.T) {
	spec := ModelSpec{Name: "test/embedder"}

	t.Run("Shares one model between lazy users", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		registry := fakeRegistry(&embedLoads, &extractLoads)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				lazy := &LazyEmbedder{Registry: registry, Spec: spec}
				embedding, err := lazy.Embed(context.Background(), "query")
				assert.NoError(t, err)
				assert.Len(t, embedding, 3)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), embedLoads.Load())
		assert.Equal(t, int64(0), extractLoads.Load(), "Extractor should not load before first use")
	})

	t.Run("Lazy extractor loads on first extract", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		registry := fakeRegistry(&embedLoads, &extractLoads)
		lazy := &LazyExtractor{Registry: registry, Spec: ModelSpec{Name: "test/ner"}}

		mentions, err := lazy.Extract(context.Background(), "Berlin")

		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "Berlin", mentions[0].Text)
		assert.Equal(t, int64(1), extractLoads.Load())
	})

	t.Run("Load failure is a model load error", func(t *testing.T) {
		registry := NewRegistry()
		registry.LoadEmbedder = func(spec ModelSpec) (Embedder, error) {
			return nil, errors.New("no network")
		}

		_, err := registry.Embedder(context.Background(), spec)

		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrModelLoadFailure)
		assert.Contains(t, err.Error(), spec.Name)
	})

	t.Run("Clear drops loaded models", func(t *testing.T) {
		var embedLoads, extractLoads atomic.Int64
		registry := fakeRegistry(&embedLoads, &extractLoads)

		_, err := registry.Embedder(context.Background(), spec)
		require.NoError(t, err)
		require.NoError(t, registry.Clear())
		_, err = registry.Embedder(context.Background(), spec)
		require.NoError(t, err)

		assert.Equal(t, int64(2), embedLoads.Load())
	})

	t.Run("Default registry is shared", func(t *testing.T) {
		assert.Same(t, DefaultRegistry(), DefaultRegistry())
	})
}
