package model

import "strings"

// EvidenceKey identifies a fact independently of the path that reached it
type EvidenceKey struct {
	SourceID     string
	RelationType string
	TargetID     string
}

// String returns a stable textual form of the key
func (k EvidenceKey) String() string {
	return k.SourceID + "|" + k.RelationType + "|" + k.TargetID
}

// Evidence is a single retrieved relation fact with its combined score
type Evidence struct {
	Source   *Entity   `json:"source"`
	Relation *Relation `json:"relation"`
	Target   *Entity   `json:"target"`
	Score    float64   `json:"score"`
	Hop      int       `json:"hop"`            // Hops from the nearest seed, starting at 1
	Path     []string  `json:"path,omitempty"` // Entity ids from the seed to the expanded entity
}

// Key returns the deduplication key (source id, relation type, target id)
func (e *Evidence) Key() EvidenceKey {
	return EvidenceKey{
		SourceID:     e.Source.ID,
		RelationType: e.Relation.Type,
		TargetID:     e.Target.ID,
	}
}

// Expansion is the raw output of a graph expansion
type Expansion struct {
	Evidence     []*Evidence   `json:"evidence"`
	Seeds        []*SeedEntity `json:"seeds"`
	NodesVisited int           `json:"nodes_visited"`
	HopsTaken    int           `json:"hops_taken"`
	Truncated    bool          `json:"truncated"` // Evidence cap or deadline stopped the traversal
	TimedOut     bool          `json:"timed_out"`
	Skipped      []string      `json:"skipped,omitempty"` // Entity branches dropped after retries
}

// ContextBundle is the size-bounded textual context assembled from ranked evidence
type ContextBundle struct {
	Parts    []string `json:"parts"`
	Size     int      `json:"size"`
	Budget   int      `json:"budget"`
	Included int      `json:"included"`
	Dropped  int      `json:"dropped"`
	frozen   bool
}

// NewContextBundle creates an empty bundle with the given budget
func NewContextBundle(budget int) *ContextBundle {
	return &ContextBundle{Budget: budget}
}

// Frozen reports whether the bundle stopped accepting parts
func (b *ContextBundle) Frozen() bool {
	return b.frozen
}

// Freeze stops the bundle from accepting further parts
func (b *ContextBundle) Freeze() {
	b.frozen = true
}

// Text joins the parts with newlines
func (b *ContextBundle) Text() string {
	return strings.Join(b.Parts, "\n")
}
