package rag

import (
	"context"
	"sync"
	"time"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/logger"
	"github.com/modulwissen/interview-go/internal/metrics"
)

// HybridSearcher combines BM25 keyword search and vector semantic
// search using Reciprocal Rank Fusion. With only one leg available it
// degrades to that leg alone.
type HybridSearcher struct {
	vectorDB  *VectorDB
	bm25Index *BM25Index
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewHybridSearcher wires both legs. Either may be nil.
func NewHybridSearcher(vectorDB *VectorDB, bm25Index *BM25Index, m *metrics.Metrics, log *logger.Logger) *HybridSearcher {
	return &HybridSearcher{
		vectorDB:  vectorDB,
		bm25Index: bm25Index,
		metrics:   m,
		logger:    log.WithModule("rag.hybrid"),
	}
}

// Search runs both legs in parallel and fuses the results. A failed leg
// is logged and the other leg's results are used alone.
func (h *HybridSearcher) Search(ctx context.Context, query string, topN int) ([]SearchResult, error) {
	if h == nil {
		return nil, nil
	}

	vectorEnabled := h.vectorDB != nil && h.vectorDB.IsEnabled()
	bm25Enabled := h.bm25Index != nil && h.bm25Index.IsEnabled()
	if !vectorEnabled && !bm25Enabled {
		return nil, nil
	}

	// Fetch more than requested so fusion has overlap to work with.
	fetchN := topN * 3
	if fetchN < 30 {
		fetchN = 30
	}

	var (
		bm25Results   []BM25Result
		vectorResults []SearchResult
		bm25Err       error
		vectorErr     error
		wg            sync.WaitGroup
	)

	start := time.Now()
	if bm25Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			legStart := time.Now()
			bm25Results, bm25Err = h.bm25Index.Search(query, fetchN)
			h.recordLeg("bm25", bm25Err, time.Since(legStart))
		}()
	}
	if vectorEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			legStart := time.Now()
			vectorResults, vectorErr = h.vectorDB.Search(ctx, query, fetchN)
			h.recordLeg("vector", vectorErr, time.Since(legStart))
		}()
	}
	wg.Wait()

	if bm25Err != nil {
		h.logger.WithError(bm25Err).Warn("BM25 search failed")
	}
	if vectorErr != nil {
		h.logger.WithError(vectorErr).Warn("Vector search failed")
	}

	if !bm25Enabled || len(bm25Results) == 0 {
		// Vector only, results already carry true similarity.
		h.recordLeg("hybrid", vectorErr, time.Since(start))
		if len(vectorResults) > topN {
			vectorResults = vectorResults[:topN]
		}
		return vectorResults, nil
	}

	if !vectorEnabled || len(vectorResults) == 0 {
		// BM25 only. Scores are unbounded, so rank position stands in
		// for similarity.
		h.recordLeg("hybrid", bm25Err, time.Since(start))
		results := make([]SearchResult, 0, min(len(bm25Results), topN))
		for _, r := range bm25Results {
			if len(results) >= topN {
				break
			}
			results = append(results, SearchResult{
				UID:        r.UID,
				Title:      r.Title,
				Page:       r.Page,
				Content:    r.Content,
				Similarity: computeRankConfidence(r.Rank),
			})
		}
		return results, nil
	}

	hybridResults := FuseRRFWithDefaults(bm25Results, vectorResults, topN)
	h.recordLeg("hybrid", nil, time.Since(start))

	h.logger.WithFields(map[string]any{
		"bm25_count":   len(bm25Results),
		"vector_count": len(vectorResults),
		"fused_count":  len(hybridResults),
	}).Debug("Hybrid search completed")

	return ToSearchResults(hybridResults), nil
}

func (h *HybridSearcher) recordLeg(kind string, err error, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	h.metrics.RecordRetrieval(kind, status, elapsed.Seconds())
}

// computeRankConfidence maps a BM25 rank to a confidence in (0, 1]:
// rank 1 → 0.95, rank 5 → 0.80, rank 10 → 0.67, rank 20 → 0.50.
func computeRankConfidence(rank int) float32 {
	if rank <= 0 {
		return 0
	}
	return float32(1.0 / (1.0 + 0.05*float64(rank)))
}

// Initialize builds both indexes from the catalog.
func (h *HybridSearcher) Initialize(ctx context.Context, courses []*catalog.Course) error {
	if h == nil {
		return nil
	}

	if h.bm25Index != nil {
		if err := h.bm25Index.Initialize(courses); err != nil {
			return err
		}
	}
	if h.vectorDB != nil {
		if err := h.vectorDB.Initialize(ctx, courses); err != nil {
			return err
		}
	}
	return nil
}

// Refresh re-indexes a single course after its knowledge changed. The
// BM25 side rebuilds from the full catalog, the vector side re-embeds
// just the course.
func (h *HybridSearcher) Refresh(ctx context.Context, courses []*catalog.Course, changed *catalog.Course) error {
	if h == nil {
		return nil
	}

	if h.bm25Index != nil {
		if err := h.bm25Index.Rebuild(courses); err != nil {
			return err
		}
	}
	if h.vectorDB != nil && changed != nil {
		if err := h.vectorDB.UpdateCourse(ctx, changed); err != nil {
			return err
		}
	}
	return nil
}

// IsEnabled returns true if at least one leg is available.
func (h *HybridSearcher) IsEnabled() bool {
	if h == nil {
		return false
	}
	return (h.vectorDB != nil && h.vectorDB.IsEnabled()) ||
		(h.bm25Index != nil && h.bm25Index.IsEnabled())
}

// VectorDB returns the vector leg.
func (h *HybridSearcher) VectorDB() *VectorDB {
	if h == nil {
		return nil
	}
	return h.vectorDB
}

// BM25Index returns the keyword leg.
func (h *HybridSearcher) BM25Index() *BM25Index {
	if h == nil {
		return nil
	}
	return h.bm25Index
}
