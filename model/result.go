package model

import "time"

// RetrievalResult is the answer of one retrieve call
type RetrievalResult struct {
	QueryID       string        `json:"query_id"`
	Query         string        `json:"query"`
	Context       string        `json:"context"`
	Seeds         []*SeedEntity `json:"seed_entities"`
	Evidence      []*Evidence   `json:"evidence,omitempty"` // Evidence included in the context, in rank order
	EvidenceCount int           `json:"evidence_count"`     // Number of evidence items in the context
	RankedCount   int           `json:"ranked_count"`       // Number of deduplicated facts before the budget
	Dropped       int           `json:"dropped"`            // Facts left out for budget reasons
	ContextSize   int           `json:"context_size"`
	NodesVisited  int           `json:"nodes_visited"`
	Truncated     bool          `json:"truncated"`
	TimedOut      bool          `json:"timed_out"`
	Warnings      []string      `json:"warnings,omitempty"`
	Duration      time.Duration `json:"duration"`
}
