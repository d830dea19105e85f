// Package catalog holds the course catalog: loading, normalization, fuzzy
// title matching and the per-course experience knowledge persisted as
// catalog JSON, JSON-LD and Turtle.
package catalog

import (
	"regexp"
	"strings"
	"time"

	"github.com/modulwissen/interview-go/internal/sliceutil"
)

// idPattern matches course unit identifiers like "T-WIWI-102816" or
// "M-MACH-105296". The middle segment may itself contain hyphens.
var idPattern = regexp.MustCompile(`\b[TM]-[A-Z][A-Z-]*-\d{5,6}\b`)

// Course represents one entry of the module handbook catalog.
type Course struct {
	ID               string           `json:"id,omitempty"`
	Title            string           `json:"title"`
	Page             int              `json:"page,omitempty"`
	Text             string           `json:"text"`
	Responsibility   string           `json:"responsibility,omitempty"`
	ECTS             float64          `json:"ects_lp,omitempty"`
	Erfolgskontrolle string           `json:"erfolgskontrolle,omitempty"`
	NewKnowledge     []KnowledgeEntry `json:"New_Knowledge"`
}

// KnowledgeEntry is one interview's contribution to a course. There is at
// most one entry per (course, session) pair; repeated saves merge into it.
type KnowledgeEntry struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"ts"`
	Facts     FactSet   `json:"facts"`
}

// FactSet holds the structured experience facts extracted from interviews.
// Scalars are nil when unknown; lists are ordered and deduplicated.
type FactSet struct {
	ExamType     *string  `json:"exam_type"`
	PrepWeeks    *float64 `json:"prep_weeks"`
	HoursPerWeek *float64 `json:"hours_per_week"`
	Difficulty   *int     `json:"difficulty_1_5"`
	Strategies   []string `json:"strategies"`
	Materials    []string `json:"materials"`
	Pitfalls     []string `json:"pitfalls"`
	Tips         []string `json:"tips"`
}

// Exam type values stored in FactSet.ExamType.
const (
	ExamWritten = "schriftlich"
	ExamOral    = "mündlich"
)

// Merge combines f with overlay: scalars take the last non-nil value,
// lists become order-preserving unions (f first, then unseen overlay
// entries). Merge never mutates its receivers.
func (f FactSet) Merge(overlay FactSet) FactSet {
	out := FactSet{
		ExamType:     mergeScalar(f.ExamType, overlay.ExamType),
		PrepWeeks:    mergeScalar(f.PrepWeeks, overlay.PrepWeeks),
		HoursPerWeek: mergeScalar(f.HoursPerWeek, overlay.HoursPerWeek),
		Difficulty:   mergeScalar(f.Difficulty, overlay.Difficulty),
		Strategies:   sliceutil.UnionStrings(f.Strategies, overlay.Strategies),
		Materials:    sliceutil.UnionStrings(f.Materials, overlay.Materials),
		Pitfalls:     sliceutil.UnionStrings(f.Pitfalls, overlay.Pitfalls),
		Tips:         sliceutil.UnionStrings(f.Tips, overlay.Tips),
	}
	out.clampDifficulty()
	return out
}

func mergeScalar[T any](base, overlay *T) *T {
	if overlay != nil {
		v := *overlay
		return &v
	}
	if base != nil {
		v := *base
		return &v
	}
	return nil
}

func (f *FactSet) clampDifficulty() {
	if f.Difficulty == nil {
		return
	}
	if *f.Difficulty < 1 {
		one := 1
		f.Difficulty = &one
	} else if *f.Difficulty > 5 {
		five := 5
		f.Difficulty = &five
	}
}

// Sanitize normalizes a fact set in place: exam type folded to the two
// known values (anything else dropped), difficulty clamped to 1..5,
// lists deduplicated with blank entries removed.
func (f *FactSet) Sanitize() {
	if f.ExamType != nil {
		switch strings.ToLower(strings.TrimSpace(*f.ExamType)) {
		case ExamWritten, "klausur", "written":
			v := ExamWritten
			f.ExamType = &v
		case ExamOral, "muendlich", "oral":
			v := ExamOral
			f.ExamType = &v
		default:
			f.ExamType = nil
		}
	}
	f.clampDifficulty()
	f.Strategies = cleanList(f.Strategies)
	f.Materials = cleanList(f.Materials)
	f.Pitfalls = cleanList(f.Pitfalls)
	f.Tips = cleanList(f.Tips)
}

func cleanList(items []string) []string {
	trimmed := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return sliceutil.Deduplicate(trimmed, strings.ToLower)
}

// Clone returns a deep copy of the fact set.
func (f FactSet) Clone() FactSet {
	return FactSet{}.Merge(f)
}

// IsEmpty reports whether no fact is set.
func (f FactSet) IsEmpty() bool {
	return f.ExamType == nil && f.PrepWeeks == nil && f.HoursPerWeek == nil &&
		f.Difficulty == nil && len(f.Strategies) == 0 && len(f.Materials) == 0 &&
		len(f.Pitfalls) == 0 && len(f.Tips) == 0
}

// Equal reports whether two fact sets carry the same values.
func (f FactSet) Equal(other FactSet) bool {
	return scalarEqual(f.ExamType, other.ExamType) &&
		scalarEqual(f.PrepWeeks, other.PrepWeeks) &&
		scalarEqual(f.HoursPerWeek, other.HoursPerWeek) &&
		scalarEqual(f.Difficulty, other.Difficulty) &&
		stringsEqual(f.Strategies, other.Strategies) &&
		stringsEqual(f.Materials, other.Materials) &&
		stringsEqual(f.Pitfalls, other.Pitfalls) &&
		stringsEqual(f.Tips, other.Tips)
}

func scalarEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CleanTitle returns the catalog title with any embedded course id (in
// square or round brackets) and surrounding whitespace stripped.
func (c *Course) CleanTitle() string {
	return CleanTitle(c.Title)
}

var bracketedID = regexp.MustCompile(`\s*[\[(]\s*[TM]-[A-Z][A-Z-]*-\d{5,6}\s*[\])]`)

// CleanTitle strips a bracketed course id from a raw catalog title.
func CleanTitle(title string) string {
	return strings.TrimSpace(bracketedID.ReplaceAllString(title, ""))
}

// ExtractID returns the first course id found in s, or "".
func ExtractID(s string) string {
	return idPattern.FindString(s)
}

// MergedFacts folds all knowledge entries of the course into one fact set,
// in entry order.
func (c *Course) MergedFacts() FactSet {
	var merged FactSet
	for _, e := range c.NewKnowledge {
		merged = merged.Merge(e.Facts)
	}
	return merged
}

// KnownnessScore measures how much is already known about the course:
// one point per populated scalar fact, one per non-empty list, up to two
// for stored knowledge entries and one for a substantial catalog text.
// Used to steer interviews toward the least-known courses.
func (c *Course) KnownnessScore() int {
	merged := c.MergedFacts()

	score := 0
	if merged.ExamType != nil {
		score++
	}
	if merged.PrepWeeks != nil {
		score++
	}
	if merged.HoursPerWeek != nil {
		score++
	}
	if merged.Difficulty != nil {
		score++
	}
	for _, list := range [][]string{merged.Strategies, merged.Materials, merged.Pitfalls, merged.Tips} {
		if len(list) > 0 {
			score++
		}
	}
	score += min(2, len(c.NewKnowledge))
	if len(c.Text) > 200 {
		score++
	}
	return score
}
