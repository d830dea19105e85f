package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and folds umlauts",
			input:    "Einführung in die Ökonomie",
			expected: "einfuehrung in die oekonomie",
		},
		{
			name:     "folds sharp s",
			input:    "Maßtheorie",
			expected: "masstheorie",
		},
		{
			name:     "folds combining diaeresis form",
			input:    "Ökonometrie",
			expected: "oekonometrie",
		},
		{
			name:     "strips punctuation and collapses whitespace",
			input:    "  Statistik   I: Wahrscheinlichkeit & Inferenz!  ",
			expected: "statistik i wahrscheinlichkeit inferenz",
		},
		{
			name:     "keeps digits",
			input:    "Mathe 2",
			expected: "mathe 2",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only punctuation",
			input:    "?!.,-",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"lineare", "algebra"}, Tokens("Lineare Algebra"))
	assert.Empty(t, Tokens("  ...  "))
}

func TestBigramsShortTokens(t *testing.T) {
	set := bigrams("Mathe 2")
	assert.Contains(t, set, "ma")
	assert.Contains(t, set, "he")
	// single-character tokens survive as themselves
	assert.Contains(t, set, "2")
}
