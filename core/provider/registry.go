package provider

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/siherrmann/graphrag/model"
)

// Registry shares loaded models between retriever instances. Models are
// keyed by their Hugging Face id so two retrievers with the same embedding
// model use one loaded copy.
type Registry struct {
	Embedders  *Cache[Embedder]
	Extractors *Cache[Extractor]

	// Loaders, replaceable in tests
	LoadEmbedder  func(spec ModelSpec) (Embedder, error)
	LoadExtractor func(spec ModelSpec) (Extractor, error)
}

// NewRegistry creates a registry loading models through hugot
func NewRegistry() *Registry {
	return &Registry{
		Embedders:  NewCache[Embedder](),
		Extractors: NewCache[Extractor](),
		LoadEmbedder: func(spec ModelSpec) (Embedder, error) {
			return NewHugotEmbedder(spec)
		},
		LoadExtractor: func(spec ModelSpec) (Extractor, error) {
			return NewHugotExtractor(spec)
		},
	}
}

// DefaultRegistry returns the process wide registry
var DefaultRegistry = sync.OnceValue(NewRegistry)

// Embedder returns the embedder for spec, loading it on first use
func (r *Registry) Embedder(ctx context.Context, spec ModelSpec) (Embedder, error) {
	embedder, err := r.Embedders.Get(ctx, spec.Name, func() (Embedder, error) {
		return r.LoadEmbedder(spec)
	})
	if err != nil {
		return nil, model.NewRetrievalError(model.ErrModelLoadFailure, model.StageModel, spec.Name, err)
	}
	return embedder, nil
}

// Extractor returns the NER extractor for spec, loading it on first use
func (r *Registry) Extractor(ctx context.Context, spec ModelSpec) (Extractor, error) {
	extractor, err := r.Extractors.Get(ctx, spec.Name, func() (Extractor, error) {
		return r.LoadExtractor(spec)
	})
	if err != nil {
		return nil, model.NewRetrievalError(model.ErrModelLoadFailure, model.StageModel, spec.Name, err)
	}
	return extractor, nil
}

// Clear releases all loaded models
func (r *Registry) Clear() error {
	return multierror.Append(r.Embedders.Clear(), r.Extractors.Clear()).ErrorOrNil()
}

// LazyEmbedder resolves its model from a registry on the first Embed call
type LazyEmbedder struct {
	Registry *Registry
	Spec     ModelSpec
}

// Embed loads the model if needed and embeds text
func (l *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedder, err := l.Registry.Embedder(ctx, l.Spec)
	if err != nil {
		return nil, err
	}
	return embedder.Embed(ctx, text)
}

// LazyExtractor resolves its model from a registry on the first Extract call
type LazyExtractor struct {
	Registry *Registry
	Spec     ModelSpec
}

// Extract loads the model if needed and extracts mentions from text
func (l *LazyExtractor) Extract(ctx context.Context, text string) ([]model.Mention, error) {
	extractor, err := l.Registry.Extractor(ctx, l.Spec)
	if err != nil {
		return nil, err
	}
	return extractor.Extract(ctx, text)
}
