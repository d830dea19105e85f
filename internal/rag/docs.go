// Package rag provides hybrid course retrieval: BM25 keyword search and
// chromem-backed vector search fused with Reciprocal Rank Fusion.
package rag

import (
	"strings"

	"github.com/modulwissen/interview-go/internal/catalog"
)

// ChunkType names the piece of a course a retrieval document came from.
type ChunkType string

const (
	// ChunkTypeText is the handbook description of the course.
	ChunkTypeText ChunkType = "text"

	// ChunkTypeExam is the Erfolgskontrolle section.
	ChunkTypeExam ChunkType = "pruefung"

	// ChunkTypeKnowledge is the rendered interview knowledge.
	ChunkTypeKnowledge ChunkType = "wissen"
)

// Chunk is one retrieval document derived from a course.
type Chunk struct {
	Type    ChunkType
	Content string
}

// SearchResult is a retrieval hit with its best-matching chunk.
type SearchResult struct {
	UID        string
	Title      string
	Page       int
	Content    string
	Similarity float32
}

// CourseUID returns the identifier retrieval documents are keyed by.
// Courses without an id fall back to the cleaned title.
func CourseUID(c *catalog.Course) string {
	if c.ID != "" {
		return c.ID
	}
	return catalog.CleanTitle(c.Title)
}

// ChunksFor splits a course into its retrieval chunks. Each non-empty
// section becomes one document so that a match can point at the exam
// rules or the collected experience rather than the whole entry.
func ChunksFor(c *catalog.Course) []Chunk {
	if c == nil {
		return nil
	}
	title := catalog.CleanTitle(c.Title)

	var chunks []Chunk
	if text := strings.TrimSpace(c.Text); text != "" {
		chunks = append(chunks, Chunk{Type: ChunkTypeText, Content: title + "\n\n" + text})
	}
	if ek := strings.TrimSpace(c.Erfolgskontrolle); ek != "" {
		chunks = append(chunks, Chunk{Type: ChunkTypeExam, Content: title + "\n\nErfolgskontrolle: " + ek})
	}
	if len(c.NewKnowledge) > 0 {
		chunks = append(chunks, Chunk{Type: ChunkTypeKnowledge, Content: catalog.RenderMarkdown(c)})
	}
	return chunks
}
