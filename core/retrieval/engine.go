package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/provider"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Engine composes the retrieval stages into a single Retrieve call
type Engine struct {
	stages Stages
	config *model.RetrieverConfig
	logger *slog.Logger
}

// NewEngine creates a new retrieval engine from explicit stages
func NewEngine(stages Stages, config *model.RetrieverConfig, logger *slog.Logger) (*Engine, error) {
	if stages.Resolver == nil || stages.Expander == nil || stages.Ranker == nil || stages.Formatter == nil {
		return nil, fmt.Errorf("all retrieval stages must be set")
	}
	if config == nil {
		return nil, fmt.Errorf("retriever configuration is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}
	return &Engine{
		stages: stages,
		config: config,
		logger: logger,
	}, nil
}

// NewDefaultEngine creates an engine with the default stages on top of store.
// A nil extractor disables NER resolution.
func NewDefaultEngine(store graph.Store, embedder provider.Embedder, extractor provider.Extractor, config *model.RetrieverConfig, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("graph store is nil")
	}
	if config == nil {
		return nil, fmt.Errorf("retriever configuration is nil")
	}

	size, err := NewSizeFunc(config.SizeUnit, config.TokenEncoding)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}

	return NewEngine(Stages{
		Resolver:  NewEntityResolver(store, embedder, extractor, config, logger),
		Expander:  NewGraphExpander(store, config, logger),
		Ranker:    NewEvidenceRanker(),
		Formatter: NewContextFormatter(size, config.ContextHeader),
	}, config, logger)
}

// Retrieve resolves the query to seed entities, expands them through the
// graph, ranks the evidence and formats it into the context budget.
//
// When the configured timeout hits during expansion and AllowPartial is set,
// the evidence gathered so far is returned with TimedOut set. Otherwise the
// call fails with ErrTimeout.
func (e *Engine) Retrieve(ctx context.Context, query string) (*model.RetrievalResult, error) {
	start := time.Now()
	queryID := uuid.New().String()
	logger := e.logger.With(slog.String("query_id", queryID))

	ctx, warnings := WithWarnings(ctx)
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	logger.Info("Starting retrieval", slog.String("query", query))
	result := &model.RetrievalResult{
		QueryID: queryID,
		Query:   query,
	}

	// Resolve
	stageStart := time.Now()
	seeds, err := e.stages.Resolver.Resolve(ctx, query, e.config.TopKEntities, e.config.UseNER)
	if err != nil {
		err = asTimeout(err, model.StageResolve, query)
		logger.Error("Resolution failed", slog.String("error", err.Error()))
		return nil, err
	}
	resolveTime := time.Since(stageStart)

	// Expand
	var filter *model.KeywordFilter
	if e.config.KeywordFilter {
		filter = NewKeywordFilter(query, e.config.KeywordMatchMode)
	}

	stageStart = time.Now()
	expansion, err := e.stages.Expander.Expand(ctx, seeds, e.config.GraphDepth, filter)
	if err != nil {
		err = asTimeout(err, model.StageExpand, query)
		if !errors.Is(err, model.ErrTimeout) || !e.config.AllowPartial || expansion == nil {
			logger.Error("Expansion failed", slog.String("error", err.Error()))
			return nil, err
		}
		logger.Warn("Expansion timed out, returning partial evidence", slog.Int("evidence", len(expansion.Evidence)))
		Warn(ctx, err)
		expansion.TimedOut = true
		expansion.Truncated = true
	}
	expandTime := time.Since(stageStart)

	// Rank and format
	stageStart = time.Now()
	ranked := e.stages.Ranker.Rank(expansion.Evidence)
	bundle := e.stages.Formatter.Format(ranked, e.config.SizeBudget)
	formatTime := time.Since(stageStart)

	result.Seeds = expansion.Seeds
	if len(result.Seeds) == 0 {
		result.Seeds = seeds
	}
	result.Context = bundle.Text()
	result.Evidence = ranked[:bundle.Included]
	result.EvidenceCount = bundle.Included
	result.RankedCount = len(ranked)
	result.Dropped = bundle.Dropped
	result.ContextSize = bundle.Size
	result.NodesVisited = expansion.NodesVisited
	result.Truncated = expansion.Truncated
	result.TimedOut = expansion.TimedOut
	result.Warnings = warnings.Messages()
	result.Duration = time.Since(start)

	logger.Info(
		"Retrieval finished",
		slog.Int("seeds", len(result.Seeds)),
		slog.Int("evidence", result.EvidenceCount),
		slog.Int("dropped", result.Dropped),
		slog.Int("nodes_visited", result.NodesVisited),
		slog.Bool("truncated", result.Truncated),
		slog.Duration("resolve", resolveTime),
		slog.Duration("expand", expandTime),
		slog.Duration("format", formatTime),
		slog.Duration("total", result.Duration),
	)
	return result, nil
}

// asTimeout turns deadline errors into ErrTimeout retrieval errors
func asTimeout(err error, stage, subject string) error {
	if errors.Is(err, model.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return model.NewRetrievalError(model.ErrTimeout, stage, subject, err)
}
