package rag

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/logger"
	"github.com/modulwissen/interview-go/internal/oracle"
)

const (
	// CourseCollectionName is the chromem collection holding course chunks.
	CourseCollectionName = "courses"

	// DefaultSearchResults is the default number of semantic search hits.
	DefaultSearchResults = 10

	// MaxSearchResults caps semantic search hits.
	MaxSearchResults = 50

	// MinSimilarityThreshold drops matches below this cosine similarity.
	MinSimilarityThreshold float32 = 0.3
)

// VectorDB wraps chromem-go for semantic course search.
type VectorDB struct {
	db            *chromem.DB
	collection    *chromem.Collection
	embeddingFunc chromem.EmbeddingFunc
	logger        *logger.Logger
	mu            sync.RWMutex
	initialized   bool
}

// NewVectorDB creates the persistent vector store. Returns nil, nil if
// apiKey is empty (semantic search disabled). embedPerMinute caps
// outbound embedding calls; non-positive values use the API default.
func NewVectorDB(persistDir, apiKey string, embedPerMinute int, log *logger.Logger) (*VectorDB, error) {
	if apiKey == "" {
		log.Info("Gemini API key not configured, semantic search disabled")
		return nil, nil
	}
	return newVectorDB(persistDir, oracle.NewEmbeddingFunc(apiKey, embedPerMinute), log)
}

func newVectorDB(persistDir string, embeddingFunc chromem.EmbeddingFunc, log *logger.Logger) (*VectorDB, error) {
	db, err := chromem.NewPersistentDB(persistDir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create chromem database: %w", err)
	}

	return &VectorDB{
		db:            db,
		embeddingFunc: embeddingFunc,
		logger:        log.WithModule("rag.vectordb"),
	}, nil
}

// Initialize opens the collection and indexes the catalog when the
// on-disk store is empty. Embeddings persisted by earlier runs are
// reused as-is.
func (v *VectorDB) Initialize(ctx context.Context, courses []*catalog.Course) error {
	if v == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	collection, err := v.db.GetOrCreateCollection(CourseCollectionName, nil, v.embeddingFunc)
	if err != nil {
		return fmt.Errorf("failed to get/create collection: %w", err)
	}
	v.collection = collection

	if existing := collection.Count(); existing > 0 {
		v.logger.WithField("count", existing).Info("Loaded existing course embeddings from disk")
		v.initialized = true
		return nil
	}

	if len(courses) > 0 {
		if err := v.addCoursesInternal(ctx, courses); err != nil {
			return fmt.Errorf("failed to index courses: %w", err)
		}
		v.logger.WithField("count", len(courses)).Info("Indexed courses for semantic search")
	}

	v.initialized = true
	return nil
}

// UpdateCourse re-embeds a course, replacing its previous chunks. Called
// after interview knowledge is saved so the wissen chunk stays current.
func (v *VectorDB) UpdateCourse(ctx context.Context, c *catalog.Course) error {
	if v == nil || v.collection == nil || c == nil {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	uid := CourseUID(c)
	for _, ct := range []ChunkType{ChunkTypeText, ChunkTypeExam, ChunkTypeKnowledge} {
		docID := fmt.Sprintf("%s_%s", uid, ct)
		if err := v.collection.Delete(ctx, nil, nil, docID); err != nil {
			// Chunk may not exist yet.
			v.logger.WithError(err).WithField("doc_id", docID).Debug("Failed to delete old chunk")
		}
	}

	return v.addCourseInternal(ctx, c)
}

// AddCourses indexes multiple courses.
func (v *VectorDB) AddCourses(ctx context.Context, courses []*catalog.Course) error {
	if v == nil || v.collection == nil || len(courses) == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	return v.addCoursesInternal(ctx, courses)
}

func (v *VectorDB) addCourseInternal(ctx context.Context, c *catalog.Course) error {
	docs := buildDocuments(c)
	if len(docs) == 0 {
		return nil
	}
	if err := v.collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("failed to add chunks for %s: %w", CourseUID(c), err)
	}
	return nil
}

func (v *VectorDB) addCoursesInternal(ctx context.Context, courses []*catalog.Course) error {
	docs := make([]chromem.Document, 0, len(courses)*2)
	for _, c := range courses {
		docs = append(docs, buildDocuments(c)...)
	}
	if len(docs) == 0 {
		return nil
	}
	if err := v.collection.AddDocuments(ctx, docs, 4); err != nil { // 4 concurrent embeddings
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func buildDocuments(c *catalog.Course) []chromem.Document {
	uid := CourseUID(c)
	if uid == "" {
		return nil
	}

	chunks := ChunksFor(c)
	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s_%s", uid, chunk.Type),
			Content: chunk.Content,
			Metadata: map[string]string{
				"uid":        uid,
				"title":      catalog.CleanTitle(c.Title),
				"page":       strconv.Itoa(c.Page),
				"chunk_type": string(chunk.Type),
			},
		})
	}
	return docs
}

// Search performs semantic search, deduplicated per course with the
// highest-similarity chunk kept.
func (v *VectorDB) Search(ctx context.Context, query string, nResults int) ([]SearchResult, error) {
	if v == nil || v.collection == nil {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	if nResults <= 0 {
		nResults = DefaultSearchResults
	}
	if nResults > MaxSearchResults {
		nResults = MaxSearchResults
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	docCount := v.collection.Count()
	if docCount == 0 {
		return nil, nil
	}

	// Chunks from the same course compete, so fetch extra before
	// deduplication.
	queryLimit := nResults * 3
	if queryLimit > docCount {
		queryLimit = docCount
	}

	results, err := v.collection.Query(ctx, query, queryLimit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	best := make(map[string]SearchResult)
	for _, result := range results {
		if result.Similarity < MinSimilarityThreshold {
			continue
		}

		uid := result.Metadata["uid"]
		if uid == "" {
			uid = extractUIDFromDocID(result.ID)
		}
		if uid == "" {
			continue
		}

		existing, exists := best[uid]
		if exists && result.Similarity <= existing.Similarity {
			continue
		}

		sr := SearchResult{
			UID:        uid,
			Content:    result.Content,
			Similarity: result.Similarity,
			Title:      result.Metadata["title"],
		}
		if pageStr, ok := result.Metadata["page"]; ok {
			sr.Page, _ = strconv.Atoi(pageStr)
		}
		best[uid] = sr
	}

	searchResults := make([]SearchResult, 0, len(best))
	for _, sr := range best {
		searchResults = append(searchResults, sr)
	}
	sort.Slice(searchResults, func(i, j int) bool {
		if searchResults[i].Similarity != searchResults[j].Similarity {
			return searchResults[i].Similarity > searchResults[j].Similarity
		}
		return searchResults[i].UID < searchResults[j].UID
	})

	if len(searchResults) > nResults {
		searchResults = searchResults[:nResults]
	}
	return searchResults, nil
}

// extractUIDFromDocID recovers the UID from a "UID_chunktype" document id.
func extractUIDFromDocID(docID string) string {
	lastIdx := strings.LastIndex(docID, "_")
	if lastIdx > 0 {
		return docID[:lastIdx]
	}
	return ""
}

// Count returns the number of chunks in the collection.
func (v *VectorDB) Count() int {
	if v == nil || v.collection == nil {
		return 0
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.collection.Count()
}

// IsEnabled returns true if the store is initialized and ready.
func (v *VectorDB) IsEnabled() bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.initialized && v.collection != nil
}

// Close releases resources. chromem persists on write, so this is a
// no-op kept for interface symmetry.
func (v *VectorDB) Close() error {
	return nil
}
