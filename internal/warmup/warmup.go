// Package warmup builds the retrieval indices at startup. The BM25 leg
// tokenizes the catalog in memory and finishes in milliseconds; the
// vector leg may embed the whole catalog on a cold start and can run
// for minutes, so readiness is tracked separately and gated with a
// grace period.
package warmup

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/logger"
	"github.com/modulwissen/interview-go/internal/metrics"
	"github.com/modulwissen/interview-go/internal/rag"
	"golang.org/x/sync/errgroup"
)

// Stats counts the documents each index holds after warmup.
// Fields are atomic because the tasks run concurrently.
type Stats struct {
	BM25Docs   atomic.Int64
	VectorDocs atomic.Int64
}

// Tasks carries the indices to build and the catalog to build them
// from. Nil indices are skipped, a nil Metrics recorder is allowed.
type Tasks struct {
	Courses  []*catalog.Course
	BM25     *rag.BM25Index
	VectorDB *rag.VectorDB
	Metrics  *metrics.Metrics
}

// Run builds all configured indices concurrently and returns once every
// task has finished, reporting the first task error. The BM25 build is
// pure in-memory work; the vector build is canceled early when the
// group context is canceled.
func Run(ctx context.Context, tasks Tasks, log *logger.Logger) (*Stats, error) {
	stats := &Stats{}
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runTask(tasks.Metrics, log, "bm25", func() error {
			if tasks.BM25 == nil {
				log.Debug("BM25 index not configured, skipping warmup task")
				return nil
			}
			if err := tasks.BM25.Initialize(tasks.Courses); err != nil {
				return fmt.Errorf("bm25 index: %w", err)
			}
			stats.BM25Docs.Store(int64(tasks.BM25.Count()))
			return nil
		})
	})

	g.Go(func() error {
		return runTask(tasks.Metrics, log, "vector", func() error {
			if tasks.VectorDB == nil {
				log.Debug("Vector index not configured, skipping warmup task")
				return nil
			}
			if err := tasks.VectorDB.Initialize(ctx, tasks.Courses); err != nil {
				return fmt.Errorf("vector index: %w", err)
			}
			stats.VectorDocs.Store(int64(tasks.VectorDB.Count()))
			return nil
		})
	})

	err := g.Wait()

	duration := time.Since(start)
	if tasks.Metrics != nil {
		tasks.Metrics.RecordWarmupDuration(duration.Seconds())
	}
	log.WithField("duration_ms", duration.Milliseconds()).
		WithField("bm25_docs", stats.BM25Docs.Load()).
		WithField("vector_docs", stats.VectorDocs.Load()).
		Info("Warmup complete")

	return stats, err
}

// runTask executes one warmup task and records its outcome.
func runTask(m *metrics.Metrics, log *logger.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "success"
	if err != nil {
		status = "error"
	}
	if m != nil {
		m.RecordWarmupTask(name, status)
	}

	entry := log.WithField("task", name).WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		entry.WithError(err).Error("Warmup task failed")
		return err
	}
	entry.Debug("Warmup task finished")
	return nil
}
