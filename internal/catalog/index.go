package catalog

import (
	"sort"
	"strings"
)

// Candidate pairs a course with its similarity score for a query.
type Candidate struct {
	Course *Course
	Score  float64
}

// Index holds the loaded catalog and answers fuzzy title lookups.
// The course slice preserves file order; ties in scoring resolve to the
// earlier course.
type Index struct {
	courses []*Course
	byID    map[string]*Course
}

// NewIndex builds an index over the given courses. Courses without an id
// are reachable by title search only.
func NewIndex(courses []*Course) *Index {
	byID := make(map[string]*Course, len(courses))
	for _, c := range courses {
		if c.ID != "" {
			byID[c.ID] = c
		}
	}
	return &Index{courses: courses, byID: byID}
}

// Len returns the number of indexed courses.
func (ix *Index) Len() int {
	return len(ix.courses)
}

// Courses returns the indexed courses in catalog order. Callers must not
// modify the slice.
func (ix *Index) Courses() []*Course {
	return ix.courses
}

// ByID returns the course with the given id, or nil.
func (ix *Index) ByID(id string) *Course {
	return ix.byID[id]
}

// Candidates scores every course title against the query and returns the
// top k with a positive score, best first. A query containing a course's
// exact id scores that course 1.0 regardless of its title.
func (ix *Index) Candidates(query string, k int) []Candidate {
	if k <= 0 {
		return nil
	}
	lowerQuery := strings.ToLower(query)

	scored := make([]Candidate, 0, len(ix.courses))
	for _, c := range ix.courses {
		s := Score(query, c.CleanTitle())
		if c.ID != "" && strings.Contains(lowerQuery, strings.ToLower(c.ID)) {
			s = 1.0
		}
		if s > 0 {
			scored = append(scored, Candidate{Course: c, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// Best returns the single highest-scoring candidate, or a zero Candidate
// when nothing scores above zero.
func (ix *Index) Best(query string) Candidate {
	top := ix.Candidates(query, 1)
	if len(top) == 0 {
		return Candidate{}
	}
	return top[0]
}

// LeastKnown returns up to k courses with the lowest knownness score,
// catalog order breaking ties.
func (ix *Index) LeastKnown(k int) []*Course {
	if k <= 0 {
		return nil
	}
	type ranked struct {
		course *Course
		score  int
	}
	all := make([]ranked, 0, len(ix.courses))
	for _, c := range ix.courses {
		all = append(all, ranked{course: c, score: c.KnownnessScore()})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score < all[j].score
	})
	if len(all) > k {
		all = all[:k]
	}
	out := make([]*Course, len(all))
	for i, r := range all {
		out[i] = r.course
	}
	return out
}
