package model

import "time"

// Well-known relation property keys
const (
	PropertySentence = "sentence"
	PropertyTime     = "time"
	PropertyURL      = "url"
)

// Relation represents a typed edge between two entities
type Relation struct {
	ID         string     `json:"id"`
	SourceID   string     `json:"source_id"`
	TargetID   string     `json:"target_id"`
	Type       string     `json:"relation_type"`
	Properties Properties `json:"properties,omitempty"`
	Weight     *float64   `json:"weight,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// Relevance returns the weight clamped to (0, 1]. Unweighted relations count as 1.
func (r *Relation) Relevance() float64 {
	if r.Weight == nil {
		return 1
	}
	w := *r.Weight
	switch {
	case w > 1:
		return 1
	case w <= 0:
		return minRelevance
	}
	return w
}

// minRelevance keeps zero-weight edges reachable but ranked last.
const minRelevance = 0.01

// Other returns the endpoint id opposite to entityID.
func (r *Relation) Other(entityID string) string {
	if r.SourceID == entityID {
		return r.TargetID
	}
	return r.SourceID
}

// RelationConnection is a relation together with both endpoint entities,
// as returned by a neighbor lookup. KeywordHits is the number of filter
// terms the store matched against the relation text, zero without a filter.
type RelationConnection struct {
	Relation    *Relation `json:"relation"`
	Source      *Entity   `json:"source"`
	Target      *Entity   `json:"target"`
	KeywordHits int       `json:"keyword_hits,omitempty"`
}
