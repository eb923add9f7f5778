package graphrag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/provider"
	"github.com/siherrmann/graphrag/core/retrieval"
	"github.com/siherrmann/graphrag/cypher"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Retriever answers natural language queries with ranked, budgeted graph evidence
type Retriever struct {
	Config   model.RetrieverConfig
	Store    graph.Store
	Engine   *retrieval.Engine
	Registry *provider.Registry
	// Store is closed on Close only if the retriever opened it
	ownsStore bool
	// Logging
	log *slog.Logger
}

type options struct {
	store    graph.Store
	registry *provider.Registry
	logger   *slog.Logger
}

// Option customizes NewRetriever
type Option func(*options)

// WithStore uses an existing graph store instead of opening the configured backend.
// The caller keeps ownership of the store.
func WithStore(store graph.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithRegistry shares models through registry instead of the process wide default
func WithRegistry(registry *provider.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithLogger sets the logger of the retriever and all its stages
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewRetriever creates a new Retriever. The graph store is opened from the
// configured backend, models come from the shared registry and are loaded
// on first use unless LazyLoadModel is disabled.
func NewRetriever(ctx context.Context, config model.RetrieverConfig, opts ...Option) (*Retriever, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if err := config.Validate(); err != nil {
		return nil, helper.NewError("retriever configuration validation", err)
	}

	// Logger
	logger := o.logger
	if logger == nil {
		logger = slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level: slog.LevelInfo,
			},
		}))
	}

	registry := o.registry
	if registry == nil {
		registry = provider.DefaultRegistry()
	}

	store, ownsStore := o.store, false
	if store == nil {
		var err error
		store, err = openStore(ctx, &config, logger)
		if err != nil {
			return nil, helper.NewError("open graph store", err)
		}
		ownsStore = true
	}

	r := &Retriever{
		Config:    config,
		Store:     store,
		Registry:  registry,
		ownsStore: ownsStore,
		log:       logger,
	}

	embedder := &provider.LazyEmbedder{Registry: registry, Spec: provider.EmbeddingSpec(&config)}
	var extractor provider.Extractor
	if config.UseNER {
		extractor = &provider.LazyExtractor{Registry: registry, Spec: provider.NERSpec(&config)}
	}

	if !config.LazyLoadModel {
		if err := r.Preload(ctx); err != nil {
			r.Close()
			return nil, err
		}
	}

	engine, err := retrieval.NewDefaultEngine(store, embedder, extractor, &r.Config, logger)
	if err != nil {
		r.Close()
		return nil, helper.NewError("create retrieval engine", err)
	}
	r.Engine = engine

	logger.Info("Created retriever",
		slog.String("backend", string(config.Backend)),
		slog.String("embedding_model", config.EmbeddingModelName),
		slog.Bool("use_ner", config.UseNER),
	)

	return r, nil
}

// Retrieve resolves, expands, ranks and formats graph evidence for query
func (r *Retriever) Retrieve(ctx context.Context, query string) (*model.RetrievalResult, error) {
	if r.Engine == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("retrieval engine not initialized"))
	}
	return r.Engine.Retrieve(ctx, query)
}

// Preload loads the configured models into the registry
func (r *Retriever) Preload(ctx context.Context) error {
	if _, err := r.Registry.Embedder(ctx, provider.EmbeddingSpec(&r.Config)); err != nil {
		return err
	}
	if r.Config.UseNER {
		if _, err := r.Registry.Extractor(ctx, provider.NERSpec(&r.Config)); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the graph store if the retriever opened it. Shared models
// stay loaded, use Registry.Clear to release them.
func (r *Retriever) Close() error {
	if !r.ownsStore {
		return nil
	}
	if closer, ok := r.Store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func openStore(ctx context.Context, config *model.RetrieverConfig, logger *slog.Logger) (graph.Store, error) {
	switch config.Backend {
	case model.BackendPostgres:
		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, err
		}
		db, err := helper.NewDatabase("graphrag", dbConfig, logger)
		if err != nil {
			return nil, err
		}
		store, err := database.NewStore(db, config.EmbeddingDim, false)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case model.BackendNeo4j:
		neo4jConfig, err := helper.NewNeo4jConfiguration()
		if err != nil {
			return nil, err
		}
		driver, err := helper.NewNeo4jDriver(ctx, neo4jConfig)
		if err != nil {
			return nil, err
		}
		return cypher.NewStore(driver, neo4jConfig, logger)
	case model.BackendMemory:
		return graph.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", config.Backend)
}
