package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/provider"
	"github.com/siherrmann/graphrag/model"
	"github.com/sourcegraph/conc/pool"
)

// nameLookupLimit is the number of entities a single span resolves to
const nameLookupLimit = 3

// EntityResolver merges vector candidates and NER matches into seed entities
type EntityResolver struct {
	store     graph.Store
	embedder  provider.Embedder
	extractor provider.Extractor
	config    *model.RetrieverConfig
	logger    *slog.Logger
}

// NewEntityResolver creates a resolver. A nil extractor disables the NER path.
func NewEntityResolver(store graph.Store, embedder provider.Embedder, extractor provider.Extractor, config *model.RetrieverConfig, logger *slog.Logger) *EntityResolver {
	return &EntityResolver{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		config:    config,
		logger:    logger,
	}
}

// span is a piece of query text to look up by entity name
type span struct {
	text  string
	score float64
}

// Resolve embeds the query and looks up the topK nearest entities, then adds
// entities matching named-entity spans and numeric anchors when useNER is set.
// An entity found by both paths keeps the higher confidence.
func (r *EntityResolver) Resolve(ctx context.Context, query string, topK int, useNER bool) ([]*model.SeedEntity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewRetrievalError(model.ErrResolutionUnavailable, model.StageResolve, "", errors.New("empty query"))
	}
	useNER = useNER && r.extractor != nil

	seeds := map[string]*model.SeedEntity{}
	var failures []error

	vectorErr := r.resolveVector(ctx, query, topK, seeds)
	if vectorErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !useNER {
			return nil, model.NewRetrievalError(model.ErrResolutionUnavailable, model.StageResolve, query, vectorErr)
		}
		r.logger.Warn("Vector resolution failed, using NER only", slog.String("error", vectorErr.Error()))
		Warn(ctx, fmt.Errorf("vector resolution failed, using NER only: %w", vectorErr))
		failures = append(failures, vectorErr)
	}

	if useNER {
		nerErr := r.resolveNER(ctx, query, seeds)
		if nerErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if vectorErr != nil {
				return nil, model.NewRetrievalError(model.ErrResolutionUnavailable, model.StageResolve, query, errors.Join(vectorErr, nerErr))
			}
			r.logger.Warn("NER resolution failed", slog.String("error", nerErr.Error()))
			Warn(ctx, fmt.Errorf("NER resolution failed: %w", nerErr))
			failures = append(failures, nerErr)
		}
	}

	if len(seeds) == 0 {
		cause := errors.New("no matching entities")
		if len(failures) > 0 {
			cause = errors.Join(append([]error{cause}, failures...)...)
		}
		return nil, model.NewRetrievalError(model.ErrResolutionUnavailable, model.StageResolve, query, cause)
	}

	result := make([]*model.SeedEntity, 0, len(seeds))
	for _, seed := range seeds {
		result = append(result, seed)
	}
	sort.Slice(result, func(i, j int) bool {
		return model.SeedLess(result[i], result[j])
	})
	return result, nil
}

func (r *EntityResolver) resolveVector(ctx context.Context, query string, topK int, seeds map[string]*model.SeedEntity) error {
	if r.embedder == nil {
		return errors.New("no embedding provider configured")
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return err
	}

	entities, err := withRetry(ctx, r.config.StoreRetries, r.config.RetryBackoff, func() ([]*model.Entity, error) {
		return r.store.SelectEntitiesBySimilarity(ctx, embedding, topK, r.config.SimilarityThreshold)
	})
	if err != nil {
		return model.NewRetrievalError(model.ErrStoreUnavailable, model.StageResolve, "vector lookup", err)
	}

	for _, entity := range entities {
		merge(seeds, entity, clamp01(entity.Similarity), model.ResolutionSourceVector)
	}
	r.logger.Debug("Vector candidates", slog.Int("count", len(entities)))
	return nil
}

func (r *EntityResolver) resolveNER(ctx context.Context, query string, seeds map[string]*model.SeedEntity) error {
	mentions, err := r.extractor.Extract(ctx, query)
	if err != nil {
		return err
	}

	spans := r.spans(query, mentions)
	if len(spans) == 0 {
		return nil
	}

	type lookup struct {
		span     span
		entities []*model.Entity
		err      error
	}

	p := pool.NewWithResults[lookup]().WithContext(ctx).WithMaxGoroutines(max(r.config.Concurrency, 1))
	for _, s := range spans {
		p.Go(func(ctx context.Context) (lookup, error) {
			entities, err := withRetry(ctx, r.config.StoreRetries, r.config.RetryBackoff, func() ([]*model.Entity, error) {
				return r.store.SelectEntitiesByName(ctx, s.text, nameLookupLimit)
			})
			return lookup{span: s, entities: entities, err: err}, nil
		})
	}
	lookups, err := p.Wait()
	if err != nil {
		return err
	}

	var errs []error
	for _, l := range lookups {
		if l.err != nil {
			errs = append(errs, model.NewRetrievalError(model.ErrStoreUnavailable, model.StageResolve, l.span.text, l.err))
			continue
		}
		for _, entity := range l.entities {
			merge(seeds, entity, clamp01(l.span.score*entity.Similarity), model.ResolutionSourceNER)
		}
	}
	if len(errs) > 0 && len(errs) == len(lookups) {
		return errors.Join(errs...)
	}
	for _, err := range errs {
		r.logger.Warn("Name lookup failed", slog.String("error", err.Error()))
		Warn(ctx, err)
	}
	return nil
}

// spans returns the NER mentions above the minimum score plus the numeric
// anchors of the query, deduplicated case-insensitively keeping the best score
func (r *EntityResolver) spans(query string, mentions []model.Mention) []span {
	index := map[string]int{}
	var spans []span
	add := func(text string, score float64) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		key := strings.ToLower(text)
		if i, ok := index[key]; ok {
			spans[i].score = math.Max(spans[i].score, score)
			return
		}
		index[key] = len(spans)
		spans = append(spans, span{text: text, score: score})
	}

	for _, m := range mentions {
		if m.Score < r.config.NERMinScore {
			continue
		}
		add(m.Text, m.Score)
	}
	for _, anchor := range Anchors(query) {
		add(anchor, 1)
	}
	return spans
}

// merge adds a candidate, keeping the maximum confidence per entity
func merge(seeds map[string]*model.SeedEntity, entity *model.Entity, confidence float64, source model.ResolutionSource) {
	seed, ok := seeds[entity.ID]
	if !ok {
		seeds[entity.ID] = &model.SeedEntity{Entity: entity, Confidence: confidence, Source: source}
		return
	}
	seed.Confidence = math.Max(seed.Confidence, confidence)
	seed.Source = seed.Source.Merge(source)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
