package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectArea(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "direct alias",
			text:     "Ich habe letztes Semester viel BWL gemacht",
			expected: "Betriebswirtschaftslehre",
		},
		{
			name:     "umlaut alias after space",
			text:     "am liebsten Ökonomie",
			expected: "Volkswirtschaftslehre",
		},
		{
			name:     "multi word alias",
			text:     "mich interessiert operations research sehr",
			expected: "Operations Research",
		},
		{
			name:     "alias with punctuation around it",
			text:     "Mathe!",
			expected: "Mathematik",
		},
		{
			name:     "statistics alias",
			text:     "Ökonometrie fand ich spannend",
			expected: "Statistik",
		},
		{
			name:     "no alias",
			text:     "weiß ich noch nicht",
			expected: "",
		},
		{
			name:     "alias must match whole token",
			text:     "historische Themen",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectArea(tt.text))
		})
	}
}

func TestCanonicalAreas(t *testing.T) {
	names := CanonicalAreas()
	assert.Len(t, names, 8)
	assert.Equal(t, "Betriebswirtschaftslehre", names[0])
	assert.Equal(t, "Wahlpflichtbereich", names[len(names)-1])
}
