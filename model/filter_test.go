package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		input    string
		expected MatchMode
	}{
		{"", MatchSubstring},
		{"substring", MatchSubstring},
		{"TOKEN", MatchToken},
		{" fuzzy ", MatchFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseMatchMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}

	t.Run("Unknown mode", func(t *testing.T) {
		_, err := ParseMatchMode("regex")
		assert.Error(t, err)
	})
}

func TestKeywordFilterHits(t *testing.T) {
	text := "BioNTech shipped 585,000 doses from Germany to Hong Kong"

	t.Run("Inactive filter never matches", func(t *testing.T) {
		var f *KeywordFilter
		assert.False(t, f.Active())
		assert.Equal(t, 0, f.Hits(text))
		assert.Equal(t, 0.0, f.HitFraction(text))
	})

	t.Run("Substring mode matches inside words", func(t *testing.T) {
		f := &KeywordFilter{Terms: []string{"germ", "kong", "vaccine"}, Mode: MatchSubstring}

		assert.Equal(t, 2, f.Hits(text))
		assert.InDelta(t, 2.0/3.0, f.HitFraction(text), 1e-9)
	})

	t.Run("Token mode requires whole tokens", func(t *testing.T) {
		f := &KeywordFilter{Terms: []string{"germ", "germany", "585,000"}, Mode: MatchToken}

		assert.Equal(t, 2, f.Hits(text))
	})

	t.Run("Token mode matches token sequences", func(t *testing.T) {
		f := &KeywordFilter{Terms: []string{"hong kong"}, Mode: MatchToken}

		assert.Equal(t, 1, f.Hits(text))
	})

	t.Run("Fuzzy mode tolerates spelling variants", func(t *testing.T) {
		f := &KeywordFilter{Terms: []string{"germani", "shiped", "quantum"}, Mode: MatchFuzzy}

		assert.Equal(t, 2, f.Hits(text))
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"585,000", "doses", "to", "hong", "kong"}, Tokenize("585,000 doses to Hong-Kong"))
	assert.Empty(t, Tokenize("  ,, "))
}

func TestTrigramSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, TrigramSimilarity("word", "word"), 1e-9)
	assert.Equal(t, 0.0, TrigramSimilarity("", "word"))
	assert.Less(t, TrigramSimilarity("word", "quantum"), FuzzyThreshold)
	assert.GreaterOrEqual(t, TrigramSimilarity("germany", "germani"), FuzzyThreshold)
}

func TestKeywordFilterFraction(t *testing.T) {
	f := &KeywordFilter{Terms: []string{"ship", "doses"}, Mode: MatchSubstring}

	assert.Equal(t, 0.0, f.Fraction(0))
	assert.Equal(t, 0.5, f.Fraction(1))
	assert.Equal(t, 1.0, f.Fraction(2))
	assert.Equal(t, 1.0, f.Fraction(5), "Expected store counts above the term count to be clamped")

	var inactive *KeywordFilter
	assert.Equal(t, 0.0, inactive.Fraction(3))
}
