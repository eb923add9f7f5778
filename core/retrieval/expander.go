package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/model"
)

// GraphExpander collects evidence by a bounded breadth-first traversal
type GraphExpander struct {
	store  graph.Store
	config *model.RetrieverConfig
	logger *slog.Logger
}

// NewGraphExpander creates a new graph expander
func NewGraphExpander(store graph.Store, config *model.RetrieverConfig, logger *slog.Logger) *GraphExpander {
	return &GraphExpander{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Expand traverses up to depth hops from the selected seeds. Hub entities
// are expanded with a reduced neighbor cap. A fact reached more than once is
// kept once with its best score, and the traversal stops early when a new
// fact would exceed MaxEvidence.
//
// Entities whose relations could not be fetched after retries are skipped
// and reported in Expansion.Skipped. If ctx ends, the evidence gathered so
// far is returned together with an ErrTimeout error.
func (x *GraphExpander) Expand(ctx context.Context, seeds []*model.SeedEntity, depth int, filter *model.KeywordFilter) (*model.Expansion, error) {
	selected := x.SelectSeeds(seeds)
	expansion := &model.Expansion{Seeds: selected}
	if len(selected) == 0 {
		return expansion, model.NewRetrievalError(model.ErrResolutionUnavailable, model.StageExpand, "", errors.New("no seeds"))
	}

	start := make(graph.Frontier, 0, len(selected))
	for _, seed := range selected {
		start = append(start, &graph.FrontierNode{
			Entity: seed.Entity,
			Score:  seed.Confidence,
			Path:   []string{seed.Entity.ID},
		})
	}

	neighbors := func(ctx context.Context, node *graph.FrontierNode) ([]*model.RelationConnection, error) {
		limit, err := x.neighborLimit(ctx, node.Entity)
		if err != nil {
			return nil, err
		}
		// Non-seed nodes get the relation they were reached by back
		if len(node.Path) > 1 && limit >= 0 {
			limit++
		}
		return withRetry(ctx, x.config.StoreRetries, x.config.RetryBackoff, func() ([]*model.RelationConnection, error) {
			return x.store.SelectRelations(ctx, node.Entity.ID, filter, limit)
		})
	}

	// Index of every collected fact in expansion.Evidence
	collected := map[model.EvidenceKey]int{}

	visit := func(hop int, node *graph.FrontierNode, connections []*model.RelationConnection) ([]*graph.FrontierNode, bool) {
		decay := math.Pow(x.config.HopDecay, float64(hop-1))
		next := make([]*graph.FrontierNode, 0, len(connections))
		for _, c := range connections {
			if c.Source == nil || c.Target == nil {
				continue
			}
			score := node.Score * edgeRelevance(c, filter) * decay
			evidence := &model.Evidence{
				Source:   c.Source,
				Relation: c.Relation,
				Target:   c.Target,
				Score:    score,
				Hop:      hop,
				Path:     node.Path,
			}

			key := evidence.Key()
			if i, ok := collected[key]; ok {
				if score > expansion.Evidence[i].Score {
					expansion.Evidence[i] = evidence
				}
			} else {
				if len(expansion.Evidence) >= x.config.MaxEvidence {
					expansion.Truncated = true
					return next, true
				}
				collected[key] = len(expansion.Evidence)
				expansion.Evidence = append(expansion.Evidence, evidence)
			}

			other := c.Target
			if other.ID == node.Entity.ID {
				other = c.Source
			}
			next = append(next, &graph.FrontierNode{
				Entity: other,
				Score:  score,
				Path:   graph.ExtendPath(node.Path, other.ID),
			})
		}
		return next, false
	}

	stats, err := graph.BFS(ctx, start, depth, x.config.Concurrency, neighbors, visit)
	expansion.NodesVisited = stats.NodesVisited
	expansion.HopsTaken = stats.HopsTaken

	var skipped *multierror.Error
	for _, failure := range stats.Failures {
		expansion.Skipped = append(expansion.Skipped, failure.EntityID)
		skipped = multierror.Append(skipped, model.NewRetrievalError(model.ErrStoreUnavailable, model.StageExpand, failure.EntityID, failure.Err))
	}
	if skipped != nil {
		x.logger.Warn("Skipped entities during expansion", slog.Int("count", len(stats.Failures)), slog.String("error", skipped.Error()))
		for _, e := range skipped.Errors {
			Warn(ctx, e)
		}
	}

	if err != nil {
		expansion.Truncated = true
		if errors.Is(err, context.DeadlineExceeded) {
			expansion.TimedOut = true
			return expansion, model.NewRetrievalError(model.ErrTimeout, model.StageExpand, "", err)
		}
		return expansion, err
	}

	// Every seed failed before anything was expanded
	if depth > 0 && stats.NodesVisited == 0 && skipped != nil {
		return expansion, model.NewRetrievalError(model.ErrResolutionUnavailable, model.StageExpand, "", skipped.ErrorOrNil())
	}
	return expansion, nil
}

// SelectSeeds keeps the best MaxSeeds seeds. If all of them are hubs and a
// lower-degree candidate exists, the best such candidate joins as companion.
func (x *GraphExpander) SelectSeeds(seeds []*model.SeedEntity) []*model.SeedEntity {
	ordered := make([]*model.SeedEntity, 0, len(seeds))
	for _, seed := range seeds {
		if seed != nil && seed.Entity != nil {
			ordered = append(ordered, seed)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return model.SeedLess(ordered[i], ordered[j])
	})

	if len(ordered) <= x.config.MaxSeeds {
		return ordered
	}
	selected := ordered[:x.config.MaxSeeds:x.config.MaxSeeds]

	for _, seed := range selected {
		if !seed.Entity.IsHub(x.config.HighDegreeThreshold) {
			return selected
		}
	}
	for _, seed := range ordered[x.config.MaxSeeds:] {
		if !seed.Entity.IsHub(x.config.HighDegreeThreshold) {
			x.logger.Debug("Adding companion seed for hub seeds", slog.String("entity", seed.Entity.Name))
			return append(selected, seed)
		}
	}
	return selected
}

// neighborLimit returns the neighbor cap of an entity depending on its degree.
// The degree is queried when the entity does not carry one.
func (x *GraphExpander) neighborLimit(ctx context.Context, entity *model.Entity) (int, error) {
	degree := entity.Degree
	if degree == 0 {
		d, err := withRetry(ctx, x.config.StoreRetries, x.config.RetryBackoff, func() (int, error) {
			return x.store.SelectDegree(ctx, entity.ID)
		})
		if err != nil {
			return 0, err
		}
		degree = d
	}

	if x.config.HighDegreeThreshold > 0 && degree > x.config.HighDegreeThreshold {
		x.logger.Debug("Throttling hub entity", slog.String("entity", entity.Name), slog.Int("degree", degree))
		return x.config.HubNeighborLimit, nil
	}
	return x.config.NeighborLimit, nil
}

// edgeRelevance is the clamped relation weight, blended with the share of
// keywords the store matched when a filter is active
func edgeRelevance(c *model.RelationConnection, filter *model.KeywordFilter) float64 {
	relevance := c.Relation.Relevance()
	if filter.Active() {
		relevance *= 0.5 + 0.5*filter.Fraction(c.KeywordHits)
	}
	return relevance
}
