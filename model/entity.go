package model

import (
	"fmt"
	"time"
)

// Entity represents a named node of the property graph (person, place, concept, etc.)
type Entity struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"entity_type"`
	Embedding []float32  `json:"embedding,omitempty"`
	Degree    int        `json:"degree"`
	Metadata  Properties `json:"metadata,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// Label returns the display form "Name (Type)" used in formatted evidence.
func (e *Entity) Label() string {
	if e == nil {
		return ""
	}
	if e.Type == "" {
		return e.Name
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.Type)
}

// IsHub reports whether the entity's degree exceeds the given threshold.
// A threshold <= 0 disables hub detection.
func (e *Entity) IsHub(threshold int) bool {
	return threshold > 0 && e.Degree > threshold
}

// Mention is a named-entity span extracted from query text
type Mention struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}
