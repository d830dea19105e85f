// Package evaluation holds the questionnaire shown after an interview and
// the append-only log of submitted ratings.
package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/logger"
)

// Item is one questionnaire statement rated on the shared scale.
type Item struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// Scale bounds the ratings and labels its endpoints. Labels are keyed by
// the stringified scale value, matching the JSON the form consumes.
type Scale struct {
	Min    int               `json:"min"`
	Max    int               `json:"max"`
	Labels map[string]string `json:"labels"`
}

// Schema is the questionnaire handed to the evaluation form.
type Schema struct {
	Items []Item `json:"items"`
	Scale Scale  `json:"scale"`
}

// DefaultSchema returns the five-item questionnaire of the interview
// frontend.
func DefaultSchema() Schema {
	return Schema{
		Items: []Item{
			{ID: "clarity", Prompt: "Die Fragen des Interviews waren klar und verständlich formuliert."},
			{ID: "relevance", Prompt: "Die Fragen passten zu meinen Erfahrungen aus dem Studium."},
			{ID: "pace", Prompt: "Das Tempo des Interviews war angenehm."},
			{ID: "trust", Prompt: "Ich habe Vertrauen, dass meine Angaben sinnvoll weiterverwendet werden."},
			{ID: "overall", Prompt: "Insgesamt bin ich mit dem Interview zufrieden."},
		},
		Scale: Scale{
			Min: 1,
			Max: 5,
			Labels: map[string]string{
				"1": "stimme gar nicht zu",
				"5": "stimme voll zu",
			},
		},
	}
}

// ValidateRatings checks submitted ratings against the schema: every id
// must be a questionnaire item and every value a finite whole number
// within the scale. Submitting only a subset of the items is fine.
func ValidateRatings(schema Schema, ratings map[string]float64) (map[string]int, error) {
	known := make(map[string]bool, len(schema.Items))
	for _, item := range schema.Items {
		known[item.ID] = true
	}

	out := make(map[string]int, len(ratings))
	for id, v := range ratings {
		if !known[id] {
			return nil, apperrors.NewValidationError(id, "unknown rating item")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, apperrors.NewValidationError(id, "rating must be a whole number")
		}
		n := int(v)
		if n < schema.Scale.Min || n > schema.Scale.Max {
			return nil, apperrors.NewValidationError(id, fmt.Sprintf("rating must be between %d and %d", schema.Scale.Min, schema.Scale.Max))
		}
		out[id] = n
	}
	return out, nil
}

// Record is one submitted questionnaire as appended to the log.
type Record struct {
	Timestamp   time.Time      `json:"ts"`
	SessionID   string         `json:"sessionId"`
	Ratings     map[string]int `json:"ratings"`
	Comments    string         `json:"comments,omitempty"`
	Corrections string         `json:"corrections,omitempty"`
}

// Log appends questionnaire records to a JSON-lines file. A nil Log or an
// empty path silently discards records, which keeps tests and minimal
// deployments free of wiring.
type Log struct {
	path string
	log  *logger.Logger

	mu sync.Mutex
}

// NewLog creates the append-only evaluations log at path.
func NewLog(path string, log *logger.Logger) *Log {
	if log == nil {
		log = logger.New("info")
	}
	return &Log{path: path, log: log.WithModule("evaluation")}
}

// Append writes one record as a single JSON line.
func (l *Log) Append(rec Record) error {
	if l == nil || l.path == "" {
		return nil
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling evaluation record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating evaluation log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening evaluation log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending evaluation record: %w", err)
	}
	return nil
}

// Records reads the whole log back, skipping lines that fail to parse.
func (l *Log) Records() ([]Record, error) {
	if l == nil || l.path == "" {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading evaluation log: %w", err)
	}

	var records []Record
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			l.log.WithError(err).Warn("Skipping malformed evaluation record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
