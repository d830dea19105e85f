package evaluation

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
)

func TestDefaultSchema(t *testing.T) {
	schema := DefaultSchema()

	require.Len(t, schema.Items, 5)
	wantIDs := []string{"clarity", "relevance", "pace", "trust", "overall"}
	for i, item := range schema.Items {
		assert.Equal(t, wantIDs[i], item.ID)
		assert.NotEmpty(t, item.Prompt)
	}
	assert.Equal(t, 1, schema.Scale.Min)
	assert.Equal(t, 5, schema.Scale.Max)
	assert.Equal(t, "stimme gar nicht zu", schema.Scale.Labels["1"])
	assert.Equal(t, "stimme voll zu", schema.Scale.Labels["5"])
}

func TestValidateRatings(t *testing.T) {
	schema := DefaultSchema()

	got, err := ValidateRatings(schema, map[string]float64{"overall": 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"overall": 3}, got)

	got, err = ValidateRatings(schema, map[string]float64{
		"clarity": 1, "relevance": 2, "pace": 3, "trust": 4, "overall": 5,
	})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = ValidateRatings(schema, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestValidateRatingsRejects(t *testing.T) {
	schema := DefaultSchema()

	cases := []struct {
		name    string
		ratings map[string]float64
		field   string
	}{
		{"out of range high", map[string]float64{"overall": 7}, "overall"},
		{"out of range low", map[string]float64{"pace": 0}, "pace"},
		{"fractional", map[string]float64{"trust": 3.5}, "trust"},
		{"nan", map[string]float64{"clarity": math.NaN()}, "clarity"},
		{"infinite", map[string]float64{"clarity": math.Inf(1)}, "clarity"},
		{"unknown item", map[string]float64{"speed": 3}, "speed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateRatings(schema, tc.ratings)
			require.Error(t, err)
			ve, ok := apperrors.AsValidationError(err)
			require.True(t, ok, "want a validation error")
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestLogAppendAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "evaluations.jsonl")
	log := NewLog(path, nil)

	ts := time.Date(2026, 5, 12, 10, 30, 0, 0, time.UTC)
	require.NoError(t, log.Append(Record{
		Timestamp: ts,
		SessionID: "s1",
		Ratings:   map[string]int{"overall": 4},
		Comments:  "hat Spaß gemacht",
	}))
	require.NoError(t, log.Append(Record{
		Timestamp: ts.Add(time.Minute),
		SessionID: "s2",
		Ratings:   map[string]int{"overall": 2, "pace": 1},
	}))

	records, err := log.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s1", records[0].SessionID)
	assert.Equal(t, 4, records[0].Ratings["overall"])
	assert.Equal(t, "hat Spaß gemacht", records[0].Comments)
	assert.Equal(t, "s2", records[1].SessionID)
}

func TestLogNilSafe(t *testing.T) {
	var log *Log
	assert.NoError(t, log.Append(Record{SessionID: "s1"}))

	records, err := log.Records()
	assert.NoError(t, err)
	assert.Nil(t, records)
}

func TestLogRecordsMissingFile(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "never-written.jsonl"), nil)
	records, err := log.Records()
	assert.NoError(t, err)
	assert.Nil(t, records)
}
