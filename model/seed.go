package model

// ResolutionSource tags how a seed entity was found
type ResolutionSource string

const (
	ResolutionSourceVector ResolutionSource = "vector"
	ResolutionSourceNER    ResolutionSource = "ner"
	ResolutionSourceBoth   ResolutionSource = "both"
)

// Merge combines two sources for the same entity.
func (s ResolutionSource) Merge(other ResolutionSource) ResolutionSource {
	if s == "" {
		return other
	}
	if other == "" || s == other {
		return s
	}
	return ResolutionSourceBoth
}

// SeedEntity is an entity selected as a traversal starting point for one query
type SeedEntity struct {
	Entity     *Entity          `json:"entity"`
	Confidence float64          `json:"confidence"`
	Source     ResolutionSource `json:"source"`
}

// SeedLess orders seeds by confidence descending, then degree ascending
// (rare entities before hubs), then id for a total order.
func SeedLess(a, b *SeedEntity) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Entity.Degree != b.Entity.Degree {
		return a.Entity.Degree < b.Entity.Degree
	}
	return a.Entity.ID < b.Entity.ID
}
