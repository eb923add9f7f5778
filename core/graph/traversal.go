package graph

import (
	"context"

	"github.com/siherrmann/graphrag/model"
	"golang.org/x/sync/errgroup"
)

// FrontierNode is an entity reached by the traversal together with the best
// path that reached it and that path's accumulated score
type FrontierNode struct {
	Entity *model.Entity
	Score  float64
	Path   []string // Entity ids from the seed to Entity
}

// Frontier is the ordered set of entities to expand at one hop
type Frontier []*FrontierNode

// NeighborFunc fetches the relations of one frontier entity
type NeighborFunc func(ctx context.Context, node *FrontierNode) ([]*model.RelationConnection, error)

// VisitFunc consumes the relations fetched for one node at the given hop
// (starting at 1) and returns candidates for the next hop. Returning stop
// ends the traversal after the current call.
type VisitFunc func(hop int, node *FrontierNode, connections []*model.RelationConnection) (next []*FrontierNode, stop bool)

// NodeFailure records a frontier entity whose neighbors could not be fetched
type NodeFailure struct {
	EntityID string
	Hop      int
	Err      error
}

// TraversalStats summarizes a BFS run
type TraversalStats struct {
	NodesVisited int
	HopsTaken    int
	Stopped      bool
	Failures     []NodeFailure
}

// BFS performs a hop-synchronous breadth-first traversal from all start
// nodes at once. Within a hop, neighbors are fetched concurrently with at
// most concurrency fetches in flight; the next hop starts only after every
// fetch of the current hop returned. Visits run sequentially in frontier
// order so the outcome does not depend on scheduling.
//
// Start nodes are marked visited before the first hop. A candidate already
// visited is never expanded again; among candidates for the same entity in
// one hop the one with the higher score wins.
//
// Failed fetches are recorded in the stats and the node is skipped. If ctx
// ends, BFS returns the stats gathered so far together with ctx.Err().
func BFS(ctx context.Context, start Frontier, maxHops, concurrency int, neighbors NeighborFunc, visit VisitFunc) (*TraversalStats, error) {
	stats := &TraversalStats{}
	if concurrency < 1 {
		concurrency = 1
	}

	visited := make(map[string]bool, len(start))
	frontier := make(Frontier, 0, len(start))
	for _, node := range start {
		if visited[node.Entity.ID] {
			continue
		}
		visited[node.Entity.ID] = true
		frontier = append(frontier, node)
	}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		results := make([][]*model.RelationConnection, len(frontier))
		failures := make([]error, len(frontier))

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(concurrency)
		for i, node := range frontier {
			group.Go(func() error {
				connections, err := neighbors(groupCtx, node)
				if err != nil {
					failures[i] = err
					return nil
				}
				results[i] = connections
				return nil
			})
		}
		_ = group.Wait()

		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.HopsTaken = hop
		next := Frontier{}
		nextIndex := map[string]int{}
		for i, node := range frontier {
			if failures[i] != nil {
				stats.Failures = append(stats.Failures, NodeFailure{EntityID: node.Entity.ID, Hop: hop, Err: failures[i]})
				continue
			}
			stats.NodesVisited++

			candidates, stop := visit(hop, node, results[i])
			for _, candidate := range candidates {
				id := candidate.Entity.ID
				if visited[id] {
					continue
				}
				if j, ok := nextIndex[id]; ok {
					if candidate.Score > next[j].Score {
						next[j] = candidate
					}
					continue
				}
				nextIndex[id] = len(next)
				next = append(next, candidate)
			}
			if stop {
				stats.Stopped = true
				return stats, nil
			}
		}

		for _, node := range next {
			visited[node.Entity.ID] = true
		}
		frontier = next
	}

	return stats, nil
}

// ExtendPath returns a copy of path with id appended
func ExtendPath(path []string, id string) []string {
	extended := make([]string, len(path), len(path)+1)
	copy(extended, path)
	return append(extended, id)
}
