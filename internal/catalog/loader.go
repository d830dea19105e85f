package catalog

import (
	"encoding/json"
	"os"

	"github.com/modulwissen/interview-go/internal/logger"
)

// LoadCourses reads the catalog JSON file. A missing or malformed file is
// logged and yields an empty catalog; the service stays up and answers
// with no candidates rather than failing startup.
func LoadCourses(path string, log *logger.Logger) []*Course {
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("catalog file not readable, starting with empty catalog")
		return nil
	}

	var courses []*Course
	if err := json.Unmarshal(data, &courses); err != nil {
		log.WithError(err).WithField("path", path).Warn("catalog file malformed, starting with empty catalog")
		return nil
	}

	for _, c := range courses {
		if c.ID == "" {
			c.ID = ExtractID(c.Title)
		}
		if c.NewKnowledge == nil {
			c.NewKnowledge = []KnowledgeEntry{}
		}
	}
	log.WithField("path", path).WithField("courses", len(courses)).Info("catalog loaded")
	return courses
}
