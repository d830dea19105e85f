package rag

import (
	"sort"
)

const (
	// RRFConstant is the k in the RRF formula 1 / (k + rank). The
	// standard value 60 balances top-ranked against lower-ranked hits.
	RRFConstant = 60

	// DefaultBM25Weight gives keyword search 40% of the fused score.
	DefaultBM25Weight = 0.4

	// DefaultVectorWeight gives semantic search the remaining 60%.
	DefaultVectorWeight = 0.6
)

// HybridResult is a fused hit from both search legs.
type HybridResult struct {
	UID        string
	Title      string
	Page       int
	Content    string  // Best chunk from either leg
	BM25Score  float64 // BM25 score (0 if not found by keyword search)
	VectorSim  float32 // Cosine similarity (0 if not found by vector search)
	RRFScore   float64 // Combined RRF score
	BM25Rank   int     // Rank in BM25 results (0 if absent)
	VectorRank int     // Rank in vector results (0 if absent)
}

// FuseRRF combines both result lists with Reciprocal Rank Fusion:
// score(d) = Σ w_i / (k + rank_i). The vector weight is 1 - bm25Weight.
func FuseRRF(bm25Results []BM25Result, vectorResults []SearchResult, bm25Weight float64, topN int) []HybridResult {
	if bm25Weight < 0 {
		bm25Weight = 0
	}
	if bm25Weight > 1 {
		bm25Weight = 1
	}
	vectorWeight := 1.0 - bm25Weight

	resultMap := make(map[string]*HybridResult)

	for i, r := range bm25Results {
		rank := i + 1
		score := bm25Weight / float64(RRFConstant+rank)

		if existing, ok := resultMap[r.UID]; ok {
			existing.BM25Score = r.Score
			existing.BM25Rank = rank
			existing.RRFScore += score
		} else {
			resultMap[r.UID] = &HybridResult{
				UID:       r.UID,
				Title:     r.Title,
				Page:      r.Page,
				Content:   r.Content,
				BM25Score: r.Score,
				BM25Rank:  rank,
				RRFScore:  score,
			}
		}
	}

	for i, r := range vectorResults {
		rank := i + 1
		score := vectorWeight / float64(RRFConstant+rank)

		if existing, ok := resultMap[r.UID]; ok {
			existing.VectorSim = r.Similarity
			existing.VectorRank = rank
			existing.RRFScore += score
			// Prefer the semantically matched chunk for display.
			if r.Content != "" {
				existing.Content = r.Content
			}
			if existing.Title == "" {
				existing.Title = r.Title
			}
			if existing.Page == 0 {
				existing.Page = r.Page
			}
		} else {
			resultMap[r.UID] = &HybridResult{
				UID:        r.UID,
				Title:      r.Title,
				Page:       r.Page,
				Content:    r.Content,
				VectorSim:  r.Similarity,
				VectorRank: rank,
				RRFScore:   score,
			}
		}
	}

	results := make([]HybridResult, 0, len(resultMap))
	for _, r := range resultMap {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		return results[i].UID < results[j].UID
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

// FuseRRFWithDefaults fuses with the 0.4 / 0.6 default weights.
func FuseRRFWithDefaults(bm25Results []BM25Result, vectorResults []SearchResult, topN int) []HybridResult {
	return FuseRRF(bm25Results, vectorResults, DefaultBM25Weight, topN)
}

// ToSearchResults flattens fused hits for callers that expect the plain
// result shape. Hits found only by keyword search get their RRF score
// scaled against the best hit as an approximate similarity.
func ToSearchResults(hybridResults []HybridResult) []SearchResult {
	if len(hybridResults) == 0 {
		return nil
	}

	maxScore := hybridResults[0].RRFScore

	results := make([]SearchResult, len(hybridResults))
	for i, hr := range hybridResults {
		var similarity float32
		if hr.VectorSim > 0 {
			similarity = hr.VectorSim
		} else if maxScore > 0 {
			similarity = float32(hr.RRFScore / maxScore)
		}

		results[i] = SearchResult{
			UID:        hr.UID,
			Title:      hr.Title,
			Page:       hr.Page,
			Content:    hr.Content,
			Similarity: similarity,
		}
	}
	return results
}
