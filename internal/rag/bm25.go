package rag

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/crawlab-team/bm25"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/logger"
)

// BM25Index provides keyword search over course chunks.
type BM25Index struct {
	okapi       *bm25.BM25Okapi
	corpus      []string
	uidToDocIDs map[string][]int
	docIDToUID  map[int]string
	meta        map[string]docMeta
	logger      *logger.Logger
	mu          sync.RWMutex
	initialized bool
}

type docMeta struct {
	Title string
	Page  int
}

// BM25Result is one keyword search hit.
type BM25Result struct {
	UID     string
	Title   string
	Page    int
	Content string
	Score   float64 // BM25 score (higher is better)
	Rank    int     // Rank position (1-indexed)
}

// NewBM25Index creates an empty index.
func NewBM25Index(log *logger.Logger) *BM25Index {
	return &BM25Index{
		uidToDocIDs: make(map[string][]int),
		docIDToUID:  make(map[int]string),
		meta:        make(map[string]docMeta),
		logger:      log.WithModule("rag.bm25"),
	}
}

// Initialize builds the index from the course catalog. Rebuilding from
// scratch is cheap enough at handbook scale and keeps IDF consistent.
func (idx *BM25Index) Initialize(courses []*catalog.Course) error {
	if idx == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.corpus = nil
	idx.uidToDocIDs = make(map[string][]int)
	idx.docIDToUID = make(map[int]string)
	idx.meta = make(map[string]docMeta)
	idx.okapi = nil

	docIndex := 0
	for _, c := range courses {
		uid := CourseUID(c)
		if uid == "" {
			continue
		}
		idx.meta[uid] = docMeta{Title: catalog.CleanTitle(c.Title), Page: c.Page}

		for _, chunk := range ChunksFor(c) {
			if strings.TrimSpace(chunk.Content) == "" {
				continue
			}
			idx.corpus = append(idx.corpus, chunk.Content)
			idx.uidToDocIDs[uid] = append(idx.uidToDocIDs[uid], docIndex)
			idx.docIDToUID[docIndex] = uid
			docIndex++
		}
	}

	if len(idx.corpus) == 0 {
		idx.initialized = true
		return nil
	}

	// k1=1.5, b=0.75 are standard BM25 parameters
	okapi, err := bm25.NewBM25Okapi(idx.corpus, tokenizeGerman, 1.5, 0.75, nil)
	if err != nil {
		return fmt.Errorf("failed to create BM25 index: %w", err)
	}
	idx.okapi = okapi
	idx.initialized = true

	idx.logger.WithField("docs", len(idx.corpus)).Info("BM25 index initialized")
	return nil
}

// Rebuild re-indexes the catalog, picking up knowledge saved since the
// last build.
func (idx *BM25Index) Rebuild(courses []*catalog.Course) error {
	return idx.Initialize(courses)
}

// Search performs keyword search. Results are deduplicated per course,
// keeping the best-scoring chunk, and sorted by score descending.
func (idx *BM25Index) Search(query string, topN int) ([]BM25Result, error) {
	if idx == nil {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.initialized || idx.okapi == nil {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	tokens := tokenizeGerman(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores, err := idx.okapi.GetScores(tokens)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	type scoredDoc struct {
		docID int
		score float64
	}
	best := make(map[string]scoredDoc)
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		uid := idx.docIDToUID[docID]
		if uid == "" {
			continue
		}
		if existing, ok := best[uid]; !ok || score > existing.score {
			best[uid] = scoredDoc{docID: docID, score: score}
		}
	}

	results := make([]BM25Result, 0, len(best))
	for uid, sd := range best {
		meta := idx.meta[uid]
		results = append(results, BM25Result{
			UID:     uid,
			Title:   meta.Title,
			Page:    meta.Page,
			Content: idx.corpus[sd.docID],
			Score:   sd.score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UID < results[j].UID
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// IsEnabled returns true once the index has been built.
func (idx *BM25Index) IsEnabled() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized && idx.okapi != nil
}

// Count returns the number of indexed chunks.
func (idx *BM25Index) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.corpus)
}

// tokenizeGerman reuses the catalog normalization: lowercase, umlaut
// folding, alphanumeric tokens.
func tokenizeGerman(text string) []string {
	return catalog.Tokens(text)
}
