package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/modulwissen/interview-go/internal/logger"
	"github.com/modulwissen/interview-go/internal/metrics"
)

// ObjectStore is the slice of the storage client the manager needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// fileStamp records the local file state at the last successful upload.
type fileStamp struct {
	size    int64
	modTime time.Time
}

// Manager mirrors a fixed set of data files into the bucket.
type Manager struct {
	store   ObjectStore
	prefix  string
	files   []string
	metrics *metrics.Metrics
	log     *logger.Logger

	mu     sync.Mutex
	stamps map[string]fileStamp
}

// New creates a manager mirroring the given files. prefix namespaces
// the object keys so several deployments can share one bucket. Metrics
// may be nil.
func New(store ObjectStore, prefix string, files []string, m *metrics.Metrics, log *logger.Logger) *Manager {
	return &Manager{
		store:   store,
		prefix:  prefix,
		files:   files,
		metrics: m,
		log:     log.WithModule("archive"),
		stamps:  make(map[string]fileStamp),
	}
}

// key maps a local path to its object key: <prefix>/<base>.zst.
func (m *Manager) key(file string) string {
	return path.Join(m.prefix, filepath.Base(file)+".zst")
}

// UploadAll mirrors every tracked file that changed since its last
// successful upload. Missing files are skipped and one failing file
// does not stop the others.
func (m *Manager) UploadAll(ctx context.Context) error {
	failed := 0
	for _, file := range m.files {
		if err := m.uploadFile(ctx, file); err != nil {
			failed++
			m.log.WithError(err).WithField("file", filepath.Base(file)).Error("archive upload failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("archive: %d of %d uploads failed", failed, len(m.files))
	}
	return nil
}

func (m *Manager) uploadFile(ctx context.Context, file string) error {
	info, err := os.Stat(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil // nothing written yet
	}
	if err != nil {
		return fmt.Errorf("archive: stat %q: %w", file, err)
	}

	m.mu.Lock()
	stamp, seen := m.stamps[file]
	m.mu.Unlock()
	if seen && stamp.size == info.Size() && stamp.modTime.Equal(info.ModTime()) {
		m.record("skipped", 0)
		return nil
	}

	start := time.Now()

	compressed := filepath.Join(os.TempDir(), fmt.Sprintf("%s.%d.zst", filepath.Base(file), time.Now().UnixNano()))
	if err := compressFile(file, compressed); err != nil {
		m.record("error", time.Since(start).Seconds())
		return err
	}
	defer os.Remove(compressed)

	body, err := os.Open(compressed)
	if err != nil {
		m.record("error", time.Since(start).Seconds())
		return fmt.Errorf("archive: open compressed file: %w", err)
	}
	defer body.Close()

	etag, err := m.store.Upload(ctx, m.key(file), body, "application/zstd")
	if err != nil {
		m.record("error", time.Since(start).Seconds())
		return err
	}

	m.mu.Lock()
	m.stamps[file] = fileStamp{size: info.Size(), modTime: info.ModTime()}
	m.mu.Unlock()

	m.record("success", time.Since(start).Seconds())
	m.log.WithFields(map[string]any{
		"file":        filepath.Base(file),
		"etag":        etag,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("archive upload complete")
	return nil
}

// Restore downloads tracked files that are missing locally, so a fresh
// deployment resumes from the last mirror. Objects are decompressed to
// a temp file and renamed into place. Returns the number of restored
// files.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	restored := 0
	for _, file := range m.files {
		if _, err := os.Stat(file); err == nil {
			continue
		}

		body, _, err := m.store.Download(ctx, m.key(file))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return restored, err
		}

		tmp := file + ".restore"
		err = decompressStream(body, tmp)
		body.Close()
		if err != nil {
			os.Remove(tmp)
			return restored, err
		}
		if err := os.Rename(tmp, file); err != nil {
			os.Remove(tmp)
			return restored, fmt.Errorf("archive: rename restored file: %w", err)
		}

		restored++
		m.log.WithField("file", filepath.Base(file)).Info("restored from archive")
	}
	return restored, nil
}

func (m *Manager) record(status string, seconds float64) {
	if m.metrics == nil {
		return
	}
	m.metrics.RecordArchiveUpload(status, seconds)
}
