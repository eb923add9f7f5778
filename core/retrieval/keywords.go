package retrieval

import (
	"regexp"
	"strings"

	"github.com/siherrmann/graphrag/model"
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:,\d+)*`)
	wordPattern   = regexp.MustCompile(`\b[A-Za-z]{4,}\b`)
)

// stopWords are frequent question words that would match almost every relation
var stopWords = map[string]bool{
	"about": true, "after": true, "also": true, "been": true, "before": true,
	"does": true, "done": true, "from": true, "have": true, "into": true,
	"many": true, "much": true, "only": true, "some": true, "than": true,
	"that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"whom": true, "will": true, "with": true, "would": true, "your": true,
}

// Anchors returns the numbers of a query in order of appearance, e.g. "585,000"
func Anchors(query string) []string {
	return dedupe(numberPattern.FindAllString(query, -1))
}

// KeywordsFromQuery returns the terms used to filter relations: numbers and
// words of at least four letters, lowercased, without stop words, deduplicated
// in order of appearance
func KeywordsFromQuery(query string) []string {
	terms := Anchors(query)
	for _, word := range wordPattern.FindAllString(query, -1) {
		word = strings.ToLower(word)
		if stopWords[word] {
			continue
		}
		terms = append(terms, word)
	}
	return dedupe(terms)
}

// NewKeywordFilter builds the relation filter for a query. It returns nil
// when the query has no usable terms.
func NewKeywordFilter(query string, mode model.MatchMode) *model.KeywordFilter {
	terms := KeywordsFromQuery(query)
	if len(terms) == 0 {
		return nil
	}
	return &model.KeywordFilter{Terms: terms, Mode: mode}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
