package retrieval

import (
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/model"
)

// EvidenceRanker merges evidence reached by several paths and orders it
type EvidenceRanker struct{}

// NewEvidenceRanker creates a new evidence ranker
func NewEvidenceRanker() *EvidenceRanker {
	return &EvidenceRanker{}
}

// Rank deduplicates evidence by (source, relation type, target), keeping the
// highest score, and sorts by score desc, hop asc, target degree asc, key asc.
func (EvidenceRanker) Rank(evidence []*model.Evidence) []*model.Evidence {
	best := make(map[model.EvidenceKey]*model.Evidence, len(evidence))
	for _, e := range evidence {
		if e == nil || e.Source == nil || e.Relation == nil || e.Target == nil {
			continue
		}
		key := e.Key()
		current, ok := best[key]
		if !ok || better(e, current) {
			best[key] = e
		}
	}

	ranked := make([]*model.Evidence, 0, len(best))
	for _, e := range best {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Hop != b.Hop {
			return a.Hop < b.Hop
		}
		if a.Target.Degree != b.Target.Degree {
			return a.Target.Degree < b.Target.Degree
		}
		return a.Key().String() < b.Key().String()
	})
	return ranked
}

// better decides which of two evidence items with the same key survives
func better(a, b *model.Evidence) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Hop != b.Hop {
		return a.Hop < b.Hop
	}
	return strings.Join(a.Path, "/") < strings.Join(b.Path, "/")
}
