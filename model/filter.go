package model

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// MatchMode selects how keyword filter terms match relation text
type MatchMode string

const (
	// MatchSubstring matches case-insensitive substrings
	MatchSubstring MatchMode = "substring"
	// MatchToken matches whole tokens (word boundaries)
	MatchToken MatchMode = "token"
	// MatchFuzzy matches tokens by trigram similarity
	MatchFuzzy MatchMode = "fuzzy"
)

// FuzzyThreshold is the minimum trigram similarity for MatchFuzzy
const FuzzyThreshold = 0.4

// ParseMatchMode parses a match mode name
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSubstring:
		return MatchSubstring, nil
	case MatchToken:
		return MatchToken, nil
	case MatchFuzzy:
		return MatchFuzzy, nil
	}
	return "", fmt.Errorf("unknown keyword match mode %q", s)
}

// KeywordFilter restricts neighbor lookups to relations whose type or property
// text matches at least one term
type KeywordFilter struct {
	Terms []string  `json:"terms"`
	Mode  MatchMode `json:"mode"`
}

// Active reports whether the filter restricts anything
func (f *KeywordFilter) Active() bool {
	return f != nil && len(f.Terms) > 0
}

// Hits counts the terms matching text
func (f *KeywordFilter) Hits(text string) int {
	if !f.Active() {
		return 0
	}
	lower := strings.ToLower(text)
	var tokens []string
	if f.Mode == MatchToken || f.Mode == MatchFuzzy {
		tokens = Tokenize(lower)
	}

	hits := 0
	for _, term := range f.Terms {
		term = strings.ToLower(term)
		if term == "" {
			continue
		}
		var ok bool
		switch f.Mode {
		case MatchToken:
			ok = containsTokens(tokens, Tokenize(term))
		case MatchFuzzy:
			ok = fuzzyContains(tokens, term)
		default:
			ok = strings.Contains(lower, term)
		}
		if ok {
			hits++
		}
	}
	return hits
}

// HitFraction returns the share of terms matching text, in [0, 1]
func (f *KeywordFilter) HitFraction(text string) float64 {
	if !f.Active() {
		return 0
	}
	return f.Fraction(f.Hits(text))
}

// Fraction returns hits as share of the terms, clamped to [0, 1]
func (f *KeywordFilter) Fraction(hits int) float64 {
	if !f.Active() || hits <= 0 {
		return 0
	}
	return math.Min(1, float64(hits)/float64(len(f.Terms)))
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[.,]\p{N}+)*`)

// Tokenize splits lowercased text into word and number tokens, keeping "585,000" whole
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func containsTokens(tokens, seq []string) bool {
	if len(seq) == 0 {
		return false
	}
	for i := 0; i+len(seq) <= len(tokens); i++ {
		match := true
		for j := range seq {
			if tokens[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func fuzzyContains(tokens []string, term string) bool {
	for _, tok := range tokens {
		if TrigramSimilarity(tok, term) >= FuzzyThreshold {
			return true
		}
	}
	return false
}

// TrigramSimilarity computes the pg_trgm style similarity of two words:
// shared trigrams divided by the union of trigrams, each word padded with two
// leading spaces and one trailing space.
func TrigramSimilarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(ta)+len(tb)-shared)
}

func trigrams(word string) map[string]struct{} {
	r := []rune("  " + strings.ToLower(word) + " ")
	set := make(map[string]struct{}, len(r))
	for i := 0; i+3 <= len(r); i++ {
		set[string(r[i:i+3])] = struct{}{}
	}
	return set
}
