package catalog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/logger"
)

// StorePaths names the three files the knowledge store maintains.
type StorePaths struct {
	Catalog string
	JSONLD  string
	Turtle  string
}

// Store persists interview knowledge. One mutex covers all three files;
// saves are rare (one per completed interview topic) so contention is
// not a concern.
type Store struct {
	mu    sync.Mutex
	index *Index
	paths StorePaths
	log   *logger.Logger
	now   func() time.Time
}

// NewStore wraps an index with persistence to the given paths.
func NewStore(index *Index, paths StorePaths, log *logger.Logger) *Store {
	return &Store{
		index: index,
		paths: paths,
		log:   log.WithModule("catalog.store"),
		now:   time.Now,
	}
}

// Index returns the underlying catalog index.
func (s *Store) Index() *Index {
	return s.index
}

// SaveResult reports what a save changed.
type SaveResult struct {
	Course  *Course
	Created bool // a new knowledge entry was appended
	Changed bool // the merged facts differ from the previous state
}

// SaveNewKnowledge merges facts into the (course, session) knowledge entry
// and persists catalog JSON, JSON-LD and Turtle. When the merge changes
// nothing, all three files are left untouched.
//
// The course is located by exact id, then by id embedded in courseRef,
// then by case-insensitive clean-title equality.
func (s *Store) SaveNewKnowledge(courseRef, sessionID string, facts FactSet) (SaveResult, error) {
	facts.Sanitize()

	s.mu.Lock()
	defer s.mu.Unlock()

	course := s.locate(courseRef)
	if course == nil {
		return SaveResult{}, fmt.Errorf("saving knowledge for %q: %w", courseRef, apperrors.ErrCourseNotFound)
	}

	entry := -1
	for i := range course.NewKnowledge {
		if course.NewKnowledge[i].SessionID == sessionID {
			entry = i
			break
		}
	}

	var prev, merged FactSet
	if entry >= 0 {
		prev = course.NewKnowledge[entry].Facts
		merged = prev.Merge(facts)
	} else {
		merged = FactSet{}.Merge(facts)
	}

	if merged.IsEmpty() || (entry >= 0 && merged.Equal(prev)) {
		return SaveResult{Course: course}, nil
	}

	if entry >= 0 {
		course.NewKnowledge[entry].Facts = merged
		course.NewKnowledge[entry].Timestamp = s.now().UTC()
	} else {
		course.NewKnowledge = append(course.NewKnowledge, KnowledgeEntry{
			SessionID: sessionID,
			Timestamp: s.now().UTC(),
			Facts:     merged,
		})
	}

	if err := writeJSONAtomic(s.paths.Catalog, s.index.Courses()); err != nil {
		return SaveResult{}, fmt.Errorf("persisting catalog: %w", err)
	}
	if err := upsertJSONLD(s.paths.JSONLD, buildJSONLDNode(course.ID, course.CleanTitle(), sessionID, merged)); err != nil {
		s.log.WithError(err).WithField("course_id", course.ID).Error("json-ld update failed")
	}
	if err := appendTurtle(s.paths.Turtle, buildTurtleBlock(course.ID, course.CleanTitle(), sessionID, merged)); err != nil {
		s.log.WithError(err).WithField("course_id", course.ID).Error("turtle append failed")
	}

	s.log.WithField("course_id", course.ID).WithField("session_id", sessionID).Info("knowledge saved")
	return SaveResult{Course: course, Created: entry < 0, Changed: true}, nil
}

func (s *Store) locate(courseRef string) *Course {
	if c := s.index.ByID(courseRef); c != nil {
		return c
	}
	if id := ExtractID(courseRef); id != "" {
		if c := s.index.ByID(id); c != nil {
			return c
		}
	}
	wanted := strings.ToLower(CleanTitle(courseRef))
	for _, c := range s.index.Courses() {
		if strings.ToLower(c.CleanTitle()) == wanted {
			return c
		}
	}
	return nil
}

// SessionContribution pairs a course with the knowledge one session added.
type SessionContribution struct {
	Course *Course
	Entry  KnowledgeEntry
}

// SessionKnowledge returns every course the given session contributed
// knowledge to, in catalog order.
func (s *Store) SessionKnowledge(sessionID string) []SessionContribution {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []SessionContribution
	for _, c := range s.index.Courses() {
		for _, e := range c.NewKnowledge {
			if e.SessionID == sessionID {
				out = append(out, SessionContribution{Course: c, Entry: e})
			}
		}
	}
	return out
}
