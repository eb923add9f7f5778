package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// MemoryStore is an in-process Store, safe for concurrent use
type MemoryStore struct {
	mutex     sync.RWMutex
	entities  map[string]*model.Entity
	relations map[string]*model.Relation
	incident  map[string][]string // entity id -> relation ids
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:  make(map[string]*model.Entity),
		relations: make(map[string]*model.Relation),
		incident:  make(map[string][]string),
	}
}

// AddEntity stores an entity, assigning an id if it has none
func (s *MemoryStore) AddEntity(entity *model.Entity) *model.Entity {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}
	stored := *entity
	s.entities[entity.ID] = &stored
	return entity
}

// AddRelation stores a relation between two existing entities
func (s *MemoryStore) AddRelation(relation *model.Relation) (*model.Relation, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, id := range []string{relation.SourceID, relation.TargetID} {
		if _, ok := s.entities[id]; !ok {
			return nil, helper.NewError("add relation", fmt.Errorf("entity %s does not exist", id))
		}
	}
	if relation.ID == "" {
		relation.ID = uuid.NewString()
	}
	if relation.CreatedAt.IsZero() {
		relation.CreatedAt = time.Now()
	}
	stored := *relation
	s.relations[relation.ID] = &stored
	s.incident[relation.SourceID] = append(s.incident[relation.SourceID], relation.ID)
	if relation.TargetID != relation.SourceID {
		s.incident[relation.TargetID] = append(s.incident[relation.TargetID], relation.ID)
	}
	return relation, nil
}

// SelectEntitiesBySimilarity ranks entities by cosine similarity
func (s *MemoryStore) SelectEntitiesBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*model.Entity
	for _, e := range s.entities {
		if len(e.Embedding) == 0 {
			continue
		}
		if len(e.Embedding) != len(embedding) {
			return nil, helper.NewError("similarity", fmt.Errorf("dimension mismatch: entity %s has %d, query has %d", e.ID, len(e.Embedding), len(embedding)))
		}
		entity := s.withDegree(e)
		entity.Similarity = cosine(e.Embedding, embedding)
		results = append(results, entity)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}

	filtered := results[:0]
	for _, e := range results {
		if e.Similarity >= threshold {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// SelectEntitiesByName matches names case-insensitively
func (s *MemoryStore) SelectEntitiesByName(ctx context.Context, name string, limit int) ([]*model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*model.Entity
	for _, e := range s.entities {
		lower := strings.ToLower(e.Name)
		if !strings.Contains(lower, needle) {
			continue
		}
		entity := s.withDegree(e)
		entity.Similarity = ContainsMatchScore
		if lower == needle {
			entity.Similarity = 1
		}
		results = append(results, entity)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Degree != b.Degree {
			return a.Degree < b.Degree
		}
		return a.ID < b.ID
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SelectRelations returns incident relations with both endpoints
func (s *MemoryStore) SelectRelations(ctx context.Context, entityID string, filter *model.KeywordFilter, limit int) ([]*model.RelationConnection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var connections []*model.RelationConnection
	for _, id := range s.incident[entityID] {
		r := s.relations[id]
		hits := filter.Hits(RelationText(r))
		if filter.Active() && hits == 0 {
			continue
		}
		source, ok := s.entities[r.SourceID]
		if !ok {
			return nil, helper.NewError("select relations", fmt.Errorf("missing endpoint %s of relation %s", r.SourceID, r.ID))
		}
		target, ok := s.entities[r.TargetID]
		if !ok {
			return nil, helper.NewError("select relations", fmt.Errorf("missing endpoint %s of relation %s", r.TargetID, r.ID))
		}
		relation := *r
		connections = append(connections, &model.RelationConnection{
			Relation:    &relation,
			Source:      s.withDegree(source),
			Target:      s.withDegree(target),
			KeywordHits: hits,
		})
	}

	sort.Slice(connections, func(i, j int) bool {
		a, b := connections[i], connections[j]
		wa, wb := rawWeight(a.Relation), rawWeight(b.Relation)
		if wa != wb {
			return wa > wb
		}
		da, db := otherEnd(a, entityID).Degree, otherEnd(b, entityID).Degree
		if da != db {
			return da < db
		}
		return a.Relation.ID < b.Relation.ID
	})
	if limit >= 0 && len(connections) > limit {
		connections = connections[:limit]
	}
	return connections, nil
}

// SelectDegree counts incident relations
func (s *MemoryStore) SelectDegree(ctx context.Context, entityID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if _, ok := s.entities[entityID]; !ok {
		return 0, helper.NewError("select degree", fmt.Errorf("entity %s does not exist", entityID))
	}
	return len(s.incident[entityID]), nil
}

// RelationText is the searchable text of a relation: its type followed by
// its property values in key order
func RelationText(r *model.Relation) string {
	text := r.Properties.Text()
	if text == "" {
		return r.Type
	}
	return r.Type + " " + text
}

func (s *MemoryStore) withDegree(e *model.Entity) *model.Entity {
	entity := *e
	entity.Degree = len(s.incident[e.ID])
	return &entity
}

func otherEnd(c *model.RelationConnection, entityID string) *model.Entity {
	if c.Relation.SourceID == entityID {
		return c.Target
	}
	return c.Source
}

func rawWeight(r *model.Relation) float64 {
	if r.Weight == nil {
		return 1
	}
	return *r.Weight
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
