package cypher

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

var _ graph.Store = (*Store)(nil)

// fuzzyPrefixRunes is the minimum prefix length of a fuzzy term
const fuzzyPrefixRunes = 4

// Store reads entities and relations from Neo4j. All queries are routed
// to readers; the store never writes.
type Store struct {
	driver      neo4j.DriverWithContext
	database    string
	vectorIndex string
	logger      *slog.Logger
}

// NewStore creates a new Neo4j store on an existing driver
func NewStore(driver neo4j.DriverWithContext, config *helper.Neo4jConfiguration, logger *slog.Logger) (*Store, error) {
	if driver == nil {
		return nil, helper.NewError("neo4j driver validation", fmt.Errorf("neo4j driver is nil"))
	}
	if config == nil {
		return nil, helper.NewError("neo4j configuration validation", fmt.Errorf("neo4j configuration is nil"))
	}
	if logger == nil {
		logger = helper.NewLogger(slog.LevelInfo)
	}
	return &Store{
		driver:      driver,
		database:    config.Database,
		vectorIndex: config.VectorIndex,
		logger:      logger,
	}, nil
}

// SelectEntitiesBySimilarity queries the entity vector index. Neo4j reports
// cosine scores as (1 + cos) / 2, they are converted back to cosine.
func (s *Store) SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Entity, error) {
	vector := make([]float64, len(embedding))
	for i, v := range embedding {
		vector[i] = float64(v)
	}

	records, err := s.read(ctx, selectEntitiesBySimilarity, map[string]any{
		"index":     s.vectorIndex,
		"limit":     limit,
		"embedding": vector,
	})
	if err != nil {
		return nil, helper.NewError("vector query", err)
	}

	var entities []*model.Entity
	for _, record := range records {
		entity := entityFromRecord(record)
		entity.Similarity = 2*floatValue(record, "score") - 1
		if entity.Similarity < threshold {
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// SelectEntitiesByName matches entity names case-insensitively
func (s *Store) SelectEntitiesByName(ctx context.Context, name string, limit int) ([]*model.Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	records, err := s.read(ctx, selectEntitiesByName, map[string]any{
		"name":          name,
		"limit":         limit,
		"containsScore": graph.ContainsMatchScore,
	})
	if err != nil {
		return nil, helper.NewError("name query", err)
	}

	entities := make([]*model.Entity, 0, len(records))
	for _, record := range records {
		entity := entityFromRecord(record)
		entity.Similarity = floatValue(record, "score")
		entities = append(entities, entity)
	}
	return entities, nil
}

// SelectRelations returns the relations of an entity in both directions
func (s *Store) SelectRelations(ctx context.Context, entityID string, filter *model.KeywordFilter, limit int) ([]*model.RelationConnection, error) {
	condition, terms := filterCondition(filter)
	records, err := s.read(ctx, fmt.Sprintf(selectRelations, condition), map[string]any{
		"id":    entityID,
		"terms": terms,
		"limit": limit,
	})
	if err != nil {
		return nil, helper.NewError("relations query", err)
	}

	connections := make([]*model.RelationConnection, 0, len(records))
	for _, record := range records {
		connection, err := connectionFromRecord(record)
		if err != nil {
			return nil, helper.NewError("relation record", err)
		}
		connections = append(connections, connection)
	}
	return connections, nil
}

// SelectDegree counts the relations of an entity
func (s *Store) SelectDegree(ctx context.Context, entityID string) (int, error) {
	records, err := s.read(ctx, selectDegree, map[string]any{"id": entityID})
	if err != nil {
		return 0, helper.NewError("degree query", err)
	}
	if len(records) == 0 {
		return 0, helper.NewError("degree query", fmt.Errorf("entity %s does not exist", entityID))
	}
	return intValue(records[0], "degree"), nil
}

// Close closes the driver
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// filterCondition returns the Cypher condition and the prepared terms of a filter
func filterCondition(filter *model.KeywordFilter) (string, []string) {
	if !filter.Active() {
		return matchSubstring, []string{}
	}

	terms := make([]string, 0, len(filter.Terms))
	for _, term := range filter.Terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		switch filter.Mode {
		case model.MatchToken:
			terms = append(terms, regexp.QuoteMeta(term))
		case model.MatchFuzzy:
			terms = append(terms, fuzzyPrefix(term))
		default:
			terms = append(terms, term)
		}
	}

	if filter.Mode == model.MatchToken {
		return matchToken, terms
	}
	return matchSubstring, terms
}

// fuzzyPrefix keeps the first two thirds of a term, at least fuzzyPrefixRunes
func fuzzyPrefix(term string) string {
	runes := []rune(term)
	n := max(len(runes)*2/3, fuzzyPrefixRunes)
	if n >= len(runes) {
		return term
	}
	return string(runes[:n])
}
