package graph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds A - B - C - D plus A - E with cycle E - A
func chain(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		store.AddEntity(&model.Entity{ID: id, Name: id})
	}
	for _, r := range [][3]string{{"ab", "A", "B"}, {"bc", "B", "C"}, {"cd", "C", "D"}, {"ae", "A", "E"}, {"ea", "E", "A"}} {
		_, err := store.AddRelation(&model.Relation{ID: r[0], SourceID: r[1], TargetID: r[2], Type: "NEXT"})
		require.NoError(t, err)
	}
	return store
}

func storeNeighbors(store Store) NeighborFunc {
	return func(ctx context.Context, node *FrontierNode) ([]*model.RelationConnection, error) {
		return store.SelectRelations(ctx, node.Entity.ID, nil, 10)
	}
}

// collect records every relation seen and expands every other endpoint
func collect(seen *[]string) VisitFunc {
	return func(hop int, node *FrontierNode, connections []*model.RelationConnection) ([]*FrontierNode, bool) {
		var next []*FrontierNode
		for _, c := range connections {
			*seen = append(*seen, c.Relation.ID)
			other := c.Target
			if c.Relation.SourceID != node.Entity.ID {
				other = c.Source
			}
			next = append(next, &FrontierNode{Entity: other, Score: node.Score, Path: ExtendPath(node.Path, other.ID)})
		}
		return next, false
	}
}

func startAt(ids ...string) Frontier {
	var frontier Frontier
	for _, id := range ids {
		frontier = append(frontier, &FrontierNode{Entity: &model.Entity{ID: id}, Score: 1, Path: []string{id}})
	}
	return frontier
}

func TestBFS(t *testing.T) {
	ctx := context.Background()
	store := chain(t)

	t.Run("Depth bounds the traversal", func(t *testing.T) {
		var seen []string
		stats, err := BFS(ctx, startAt("A"), 1, 2, storeNeighbors(store), collect(&seen))

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"ab", "ae", "ea"}, seen)
		assert.Equal(t, 1, stats.HopsTaken)
		assert.Equal(t, 1, stats.NodesVisited)
	})

	t.Run("Visited entities are expanded once on a cyclic graph", func(t *testing.T) {
		var seen []string
		stats, err := BFS(ctx, startAt("A"), 10, 2, storeNeighbors(store), collect(&seen))

		require.NoError(t, err)
		assert.Equal(t, 5, stats.NodesVisited, "Expected each entity to be expanded once")
		assert.Equal(t, 4, stats.HopsTaken, "Expected traversal to end when the frontier is empty")
	})

	t.Run("Zero depth visits nothing", func(t *testing.T) {
		var seen []string
		stats, err := BFS(ctx, startAt("A"), 0, 2, storeNeighbors(store), collect(&seen))

		require.NoError(t, err)
		assert.Empty(t, seen)
		assert.Equal(t, 0, stats.NodesVisited)
	})

	t.Run("Hops are synchronous", func(t *testing.T) {
		var inFlight, maxHop atomic.Int32
		neighbors := func(ctx context.Context, node *FrontierNode) ([]*model.RelationConnection, error) {
			inFlight.Add(1)
			defer inFlight.Add(-1)
			time.Sleep(5 * time.Millisecond)
			return store.SelectRelations(ctx, node.Entity.ID, nil, 10)
		}
		visit := func(hop int, node *FrontierNode, connections []*model.RelationConnection) ([]*FrontierNode, bool) {
			assert.Equal(t, int32(0), inFlight.Load(), "Expected no fetch in flight while visiting")
			maxHop.Store(int32(hop))
			var seen []string
			return collect(&seen)(hop, node, connections)
		}

		_, err := BFS(ctx, startAt("A", "C"), 3, 4, neighbors, visit)

		require.NoError(t, err)
		assert.Equal(t, int32(2), maxHop.Load())
	})

	t.Run("Failed fetch skips the node", func(t *testing.T) {
		failing := func(ctx context.Context, node *FrontierNode) ([]*model.RelationConnection, error) {
			if node.Entity.ID == "B" {
				return nil, errors.New("store unavailable")
			}
			return store.SelectRelations(ctx, node.Entity.ID, nil, 10)
		}
		var seen []string

		stats, err := BFS(ctx, startAt("A"), 3, 2, failing, collect(&seen))

		require.NoError(t, err)
		require.Len(t, stats.Failures, 1)
		assert.Equal(t, "B", stats.Failures[0].EntityID)
		assert.Equal(t, 2, stats.Failures[0].Hop)
		assert.NotContains(t, seen, "cd", "Expected branch behind B to be skipped")
	})

	t.Run("Stop ends traversal", func(t *testing.T) {
		calls := 0
		visit := func(hop int, node *FrontierNode, connections []*model.RelationConnection) ([]*FrontierNode, bool) {
			calls++
			var seen []string
			next, _ := collect(&seen)(hop, node, connections)
			return next, true
		}

		stats, err := BFS(ctx, startAt("A"), 3, 2, storeNeighbors(store), visit)

		require.NoError(t, err)
		assert.True(t, stats.Stopped)
		assert.Equal(t, 1, calls)
	})

	t.Run("Cancelled context returns partial stats", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		visit := func(hop int, node *FrontierNode, connections []*model.RelationConnection) ([]*FrontierNode, bool) {
			cancel()
			var seen []string
			return collect(&seen)(hop, node, connections)
		}

		stats, err := BFS(cancelled, startAt("A"), 3, 2, storeNeighbors(store), visit)

		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, stats)
		assert.Equal(t, 1, stats.NodesVisited)
	})

	t.Run("Higher scoring candidate wins within a hop", func(t *testing.T) {
		visit := func(hop int, node *FrontierNode, connections []*model.RelationConnection) ([]*FrontierNode, bool) {
			if hop == 1 {
				target := &model.Entity{ID: "C"}
				return []*FrontierNode{{Entity: target, Score: node.Score, Path: ExtendPath(node.Path, "C")}}, false
			}
			assert.Equal(t, []string{"B", "C"}, node.Path, "Expected path of the better scoring parent")
			return nil, false
		}
		start := Frontier{
			{Entity: &model.Entity{ID: "A"}, Score: 0.2, Path: []string{"A"}},
			{Entity: &model.Entity{ID: "B"}, Score: 0.9, Path: []string{"B"}},
		}

		_, err := BFS(ctx, start, 2, 2, storeNeighbors(store), visit)

		require.NoError(t, err)
	})
}
